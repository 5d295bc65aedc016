package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmarroquin/kitloop-backend/api/middleware"
	"github.com/dmarroquin/kitloop-backend/api/responses"
	"github.com/dmarroquin/kitloop-backend/api/validators"
	"github.com/dmarroquin/kitloop-backend/internal/bookings"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
)

type createBookingRequest struct {
	UnitID         string `json:"unit_id" validate:"required,uuid"`
	StartDate      string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"end_date" validate:"required,datetime=2006-01-02"`
	DeliveryMethod string `json:"delivery_method" validate:"omitempty,oneof=pickup delivery"`
}

type extendBookingRequest struct {
	NewEndDate string `json:"new_end_date" validate:"required,datetime=2006-01-02"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type returnBookingRequest struct {
	ReturnedAt string `json:"returned_at" validate:"omitempty"`
}

func CreateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		unitID, err := uuid.Parse(req.UnitID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit id"))
			return
		}
		start, err := parseDateField(req.StartDate, "start_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := parseDateField(req.EndDate, "end_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Create(r.Context(), bookings.CreateInput{
			CustomerID:     middleware.CustomerIDFromContext(r.Context()),
			UnitID:         unitID,
			StartDate:      start,
			EndDate:        end,
			DeliveryMethod: enums.DeliveryMethod(req.DeliveryMethod),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

func GetBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), bookingID, middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func ListBookings(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		var filters bookings.ListFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.BookingStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid booking status").WithDetails(map[string]any{"field": "status"}))
				return
			}
			filters.Status = &status
		}
		if from, ok, err := validators.ParseQueryDate(r, "date_from", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if ok {
			filters.DateFrom = &from
		}
		if to, ok, err := validators.ParseQueryDate(r, "date_to", false); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if ok {
			filters.DateTo = &to
		}

		list, err := svc.List(r.Context(), middleware.CustomerIDFromContext(r.Context()), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ExtendBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req extendBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		newEnd, err := parseDateField(req.NewEndDate, "new_end_date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Extend(r.Context(), bookings.ExtendInput{
			BookingID:  bookingID,
			CustomerID: middleware.CustomerIDFromContext(r.Context()),
			NewEndDate: newEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func CancelBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelBookingRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		err = svc.Cancel(r.Context(), bookings.CancelInput{
			BookingID:  bookingID,
			CustomerID: middleware.CustomerIDFromContext(r.Context()),
			Reason:     req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

func ReturnBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req returnBookingRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := bookings.ReturnInput{
			BookingID:  bookingID,
			CustomerID: middleware.CustomerIDFromContext(r.Context()),
		}
		if req.ReturnedAt != "" {
			returnedAt, err := time.Parse(time.RFC3339, req.ReturnedAt)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "returned_at must be RFC3339"))
				return
			}
			input.ReturnedAt = returnedAt
		}

		detail, err := svc.Return(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

func parseBookingID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "bookingId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	bookingID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking id")
	}
	return bookingID, nil
}

func parseDateField(raw, field string) (time.Time, error) {
	value, err := time.ParseInLocation(bookings.DateLayout, strings.TrimSpace(raw), time.UTC)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "must be a calendar date (YYYY-MM-DD)").WithDetails(map[string]any{"field": field})
	}
	return value, nil
}
