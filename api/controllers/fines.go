package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/api/middleware"
	"github.com/dmarroquin/kitloop-backend/api/responses"
	"github.com/dmarroquin/kitloop-backend/api/validators"
	"github.com/dmarroquin/kitloop-backend/internal/bookings"
	"github.com/dmarroquin/kitloop-backend/internal/penalties"
	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
)

type raiseDisputeRequest struct {
	Reason string `json:"reason" validate:"required,min=10,max=2000"`
}

type fineView struct {
	FineID       uuid.UUID        `json:"fine_id"`
	BookingID    uuid.UUID        `json:"booking_id"`
	Type         enums.FineType   `json:"type"`
	Amount       decimal.Decimal  `json:"amount"`
	Reason       string           `json:"reason"`
	Status       enums.FineStatus `json:"status"`
	EvidenceRefs []string         `json:"evidence_refs,omitempty"`
	OverdueHours *int             `json:"overdue_hours,omitempty"`
	Dispute      *disputeView     `json:"dispute,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

type disputeView struct {
	DisputeID       uuid.UUID           `json:"dispute_id"`
	FineID          uuid.UUID           `json:"fine_id"`
	BookingID       uuid.UUID           `json:"booking_id"`
	Reason          string              `json:"reason"`
	Status          enums.DisputeStatus `json:"status"`
	ResolutionNotes *string             `json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newFineView(f models.Fine) fineView {
	view := fineView{
		FineID:       f.ID,
		BookingID:    f.BookingID,
		Type:         f.Type,
		Amount:       f.Amount,
		Reason:       f.Reason,
		Status:       f.Status,
		EvidenceRefs: f.EvidenceRefs,
		OverdueHours: f.OverdueHours,
		CreatedAt:    f.CreatedAt,
	}
	if f.Dispute != nil {
		dv := newDisputeView(*f.Dispute)
		view.Dispute = &dv
	}
	return view
}

func newDisputeView(d models.Dispute) disputeView {
	return disputeView{
		DisputeID:       d.ID,
		FineID:          d.FineID,
		BookingID:       d.BookingID,
		Reason:          d.Reason,
		Status:          d.Status,
		ResolutionNotes: d.ResolutionNotes,
		ResolvedAt:      d.ResolvedAt,
		CreatedAt:       d.CreatedAt,
	}
}

func ListMyFines(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fines, err := svc.ListForCustomer(r.Context(), middleware.CustomerIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]fineView, 0, len(fines))
		for _, f := range fines {
			views = append(views, newFineView(f))
		}
		responses.WriteSuccess(w, map[string]any{"fines": views})
	}
}

// ListBookingFines returns the fines on one of the caller's bookings. The
// booking lookup doubles as the ownership check.
func ListBookingFines(penaltiesSvc penalties.Service, bookingsSvc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := parseBookingID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := bookingsSvc.Get(r.Context(), bookingID, middleware.CustomerIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fines, err := penaltiesSvc.ListForBooking(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]fineView, 0, len(fines))
		for _, f := range fines {
			views = append(views, newFineView(f))
		}
		responses.WriteSuccess(w, map[string]any{"fines": views})
	}
}

func RaiseDispute(svc penalties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fineID, err := parseFineID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req raiseDisputeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispute, err := svc.RaiseDispute(r.Context(), penalties.RaiseDisputeInput{
			FineID:     fineID,
			CustomerID: middleware.CustomerIDFromContext(r.Context()),
			Reason:     req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newDisputeView(*dispute))
	}
}

func parseFineID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "fineId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "fine id is required")
	}
	fineID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fine id")
	}
	return fineID, nil
}
