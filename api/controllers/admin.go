package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/api/middleware"
	"github.com/dmarroquin/kitloop-backend/api/responses"
	"github.com/dmarroquin/kitloop-backend/api/validators"
	"github.com/dmarroquin/kitloop-backend/internal/catalog"
	"github.com/dmarroquin/kitloop-backend/internal/penalties"
	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

type damageFineRequest struct {
	Amount       string   `json:"amount" validate:"required"`
	Reason       string   `json:"reason" validate:"required,min=10,max=2000"`
	EvidenceRefs []string `json:"evidence_refs" validate:"omitempty,max=20,dive,max=500"`
}

type resolveDisputeRequest struct {
	Outcome        string `json:"outcome" validate:"required,oneof=resolved rejected"`
	Notes          string `json:"notes" validate:"omitempty,max=2000"`
	AdjustedAmount string `json:"adjusted_amount" validate:"omitempty"`
}

type feePolicyRequest struct {
	GraceMinutes   int    `json:"grace_minutes" validate:"min=0,max=1440"`
	LateFeePerHour string `json:"late_fee_per_hour" validate:"required"`
	Deposit        string `json:"deposit" validate:"omitempty"`
}

func CreateDamageFine(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req damageFineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be numeric").WithDetails(map[string]any{"field": "amount"}))
			return
		}

		fine, err := svc.CreateDamageFine(r.Context(), penalties.DamageFineInput{
			BookingID:    bookingID,
			Amount:       amount,
			Reason:       req.Reason,
			EvidenceRefs: req.EvidenceRefs,
			ReportedBy:   middleware.CustomerIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newFineView(*fine))
	}
}

func GetFine(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fineID, err := parseFineID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fine, err := svc.GetFine(r.Context(), fineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newFineView(*fine))
	}
}

func MarkFinePaid(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fineID, err := parseFineID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkFinePaid(r.Context(), fineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "paid"})
	}
}

// RecomputeOverdueFine re-assesses the provisional late fine for an open
// overdue rental without waiting for the scheduled sweep.
func RecomputeOverdueFine(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RecomputeOverdue(r.Context(), bookingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "recomputed"})
	}
}

func StartDisputeReview(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		disputeID, err := parseDisputeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		err = svc.StartReview(r.Context(), disputeID, middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "in_review"})
	}
}

func ResolveDispute(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		disputeID, err := parseDisputeID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req resolveDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := penalties.ResolveDisputeInput{
			DisputeID:  disputeID,
			ReviewerID: middleware.CustomerIDFromContext(r.Context()),
			Outcome:    req.Outcome,
			Notes:      req.Notes,
		}
		if req.AdjustedAmount != "" {
			adjusted, err := decimal.NewFromString(req.AdjustedAmount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "adjusted amount must be numeric").WithDetails(map[string]any{"field": "adjusted_amount"}))
				return
			}
			input.AdjustedAmount = &adjusted
		}

		dispute, err := svc.ResolveDispute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newDisputeView(*dispute))
	}
}

func SetFeePolicy(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID, err := parseUnitID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req feePolicyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rate, err := decimal.NewFromString(req.LateFeePerHour)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "late fee must be numeric").WithDetails(map[string]any{"field": "late_fee_per_hour"}))
			return
		}
		deposit := decimal.Zero
		if req.Deposit != "" {
			deposit, err = decimal.NewFromString(req.Deposit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "deposit must be numeric").WithDetails(map[string]any{"field": "deposit"}))
				return
			}
		}

		policy := &models.FeePolicy{
			UnitID:         unitID,
			GraceMinutes:   req.GraceMinutes,
			LateFeePerHour: rate,
			Deposit:        deposit,
		}
		if err := svc.SetFeePolicy(r.Context(), policy); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"unit_id":           unitID,
			"grace_minutes":     policy.GraceMinutes,
			"late_fee_per_hour": policy.LateFeePerHour,
			"deposit":           policy.Deposit,
		})
	}
}

func parseDisputeID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "disputeId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id is required")
	}
	disputeID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute id")
	}
	return disputeID, nil
}

func parseUnitID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "unitId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id is required")
	}
	unitID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit id")
	}
	return unitID, nil
}
