package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/api/middleware"
	"github.com/dmarroquin/kitloop-backend/api/responses"
	"github.com/dmarroquin/kitloop-backend/api/validators"
	"github.com/dmarroquin/kitloop-backend/internal/payments"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

type gatewayCallbackRequest struct {
	OrderID   string `json:"order_id" validate:"required"`
	PaymentID string `json:"payment_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	BookingID string `json:"booking_id" validate:"omitempty,uuid"`
}

type gatewayFailureRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Reason  string `json:"reason" validate:"omitempty,max=500"`
}

func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.CreateIntent(r.Context(), payments.CreateIntentInput{
			BookingID:  bookingID,
			CustomerID: middleware.CustomerIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

func GetPaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetIntentForBooking(r.Context(), bookingID, middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// GatewayPaymentCallback handles the gateway's payment-completion webhook.
// Authenticity comes from the HMAC signature in the body, not from a session.
func GatewayPaymentCallback(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gatewayCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be numeric").WithDetails(map[string]any{"field": "amount"}))
			return
		}
		input := payments.VerifyInput{
			GatewayOrderID:   req.OrderID,
			GatewayPaymentID: req.PaymentID,
			Signature:        req.Signature,
			Amount:           amount,
		}
		if req.BookingID != "" {
			bookingID, err := uuid.Parse(req.BookingID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id"))
				return
			}
			input.BookingID = bookingID
		}

		view, err := svc.VerifyCallback(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func GatewayPaymentFailure(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gatewayFailureRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		err := svc.FailCallback(r.Context(), payments.FailInput{
			GatewayOrderID: req.OrderID,
			Reason:         req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "failed"})
	}
}
