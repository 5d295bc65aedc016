package penalties

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/internal/catalog"
	pkgdb "github.com/dmarroquin/kitloop-backend/pkg/db"
	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/outbox"
)

// errLateFineExists signals that a concurrent writer created the booking's
// late fine first.
var errLateFineExists = errors.New("late fine already exists")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type policyResolver interface {
	ResolveFeePolicy(ctx context.Context, unitID uuid.UUID) (catalog.EffectivePolicy, error)
}

type bookingReader interface {
	FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

// Service is the penalty engine: late fee computation, damage fines and the
// dispute lifecycle around them.
type Service interface {
	AssessLateFineTx(ctx context.Context, tx *gorm.DB, booking models.Booking, returnedAt time.Time) (*models.Fine, error)
	SweepOverdue(ctx context.Context, booking models.Booking, asOf time.Time) error
	RecomputeOverdue(ctx context.Context, bookingID uuid.UUID) error
	CreateDamageFine(ctx context.Context, input DamageFineInput) (*models.Fine, error)
	GetFine(ctx context.Context, fineID uuid.UUID) (*models.Fine, error)
	ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Fine, error)
	ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Fine, error)
	MarkFinePaid(ctx context.Context, fineID uuid.UUID) error
	RaiseDispute(ctx context.Context, input RaiseDisputeInput) (*models.Dispute, error)
	StartReview(ctx context.Context, disputeID, reviewerID uuid.UUID) error
	ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.Dispute, error)
}

type service struct {
	repo     Repository
	policies policyResolver
	bookings bookingReader
	tx       txRunner
	outbox   outboxPublisher
	logg     *logger.Logger
	maxHours int
	now      func() time.Time
}

// NewService builds the penalty engine.
func NewService(repo Repository, policies policyResolver, bookings bookingReader, tx txRunner, ob outboxPublisher, logg *logger.Logger, maxOverdueHours int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("penalties repository required")
	}
	if policies == nil {
		return nil, fmt.Errorf("policy resolver required")
	}
	if bookings == nil {
		return nil, fmt.Errorf("booking reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if maxOverdueHours <= 0 {
		maxOverdueHours = 720
	}
	return &service{
		repo:     repo,
		policies: policies,
		bookings: bookings,
		tx:       tx,
		outbox:   ob,
		logg:     logg,
		maxHours: maxOverdueHours,
		now:      time.Now,
	}, nil
}

// LateFee computes the overdue hours and fee for a return at the given time.
// The rental is due back when its end day begins; returns inside the grace
// window cost nothing, after that every started hour counts from the due
// time, not from the end of grace.
func LateFee(policy catalog.EffectivePolicy, due, at time.Time, maxHours int) (int, decimal.Decimal) {
	elapsed := at.Sub(due)
	if elapsed <= time.Duration(policy.GraceMinutes)*time.Minute {
		return 0, decimal.Zero
	}
	hours := int(math.Ceil(elapsed.Hours()))
	if hours < 1 {
		hours = 1
	}
	if maxHours > 0 && hours > maxHours {
		hours = maxHours
	}
	return hours, policy.LateFeePerHour.Mul(decimal.NewFromInt(int64(hours)))
}

// AssessLateFineTx creates the late fine for an overdue return inside the
// caller's transaction. On-time returns and already fined bookings are
// no-ops; a fine created provisionally by the overdue sweep is finalized
// with the actual return time.
func (s *service) AssessLateFineTx(ctx context.Context, tx *gorm.DB, booking models.Booking, returnedAt time.Time) (*models.Fine, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	policy, err := s.policies.ResolveFeePolicy(ctx, booking.UnitID)
	if err != nil {
		return nil, err
	}

	due := booking.EndDate
	hours, amount := LateFee(policy, due, returnedAt, s.maxHours)

	repo := s.repo.WithTx(tx)
	existing, err := repo.FindLateFineByBooking(ctx, booking.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load late fine")
	}

	if existing != nil {
		if existing.Status != enums.FineStatusPending {
			return existing, nil
		}
		updates := map[string]any{
			"amount":        amount,
			"overdue_hours": hours,
		}
		if hours == 0 {
			// Sweep fined it while unreturned but the return landed inside
			// grace after a clock skew; waive it.
			updates["status"] = enums.FineStatusResolved
		}
		if err := repo.UpdateFine(ctx, existing.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize late fine")
		}
		existing.Amount = amount
		existing.OverdueHours = &hours
		return existing, nil
	}

	if hours == 0 {
		return nil, nil
	}

	fine := &models.Fine{
		BookingID:    booking.ID,
		Type:         enums.FineTypeLate,
		Amount:       amount,
		Reason:       fmt.Sprintf("returned %d hour(s) past the due date", hours),
		Status:       enums.FineStatusPending,
		OverdueHours: &hours,
	}
	if fine, err = repo.CreateFine(ctx, fine); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create late fine")
	}
	if err := s.outbox.Emit(ctx, tx, s.fineEvent(*fine)); err != nil {
		return nil, err
	}
	return fine, nil
}

// SweepOverdue assesses or refreshes the provisional late fine for a booking
// that is past due and still unreturned. Disputed fines are left alone.
func (s *service) SweepOverdue(ctx context.Context, booking models.Booking, asOf time.Time) error {
	policy, err := s.policies.ResolveFeePolicy(ctx, booking.UnitID)
	if err != nil {
		return err
	}
	hours, amount := LateFee(policy, booking.EndDate, asOf, s.maxHours)
	if hours == 0 {
		return nil
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindLateFineByBooking(ctx, booking.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load late fine")
		}
		if existing != nil {
			if existing.Status != enums.FineStatusPending {
				return nil
			}
			return repo.UpdateFine(ctx, existing.ID, map[string]any{
				"amount":        amount,
				"overdue_hours": hours,
			})
		}

		fine := &models.Fine{
			BookingID:    booking.ID,
			Type:         enums.FineTypeLate,
			Amount:       amount,
			Reason:       fmt.Sprintf("%d hour(s) overdue, not yet returned", hours),
			Status:       enums.FineStatusPending,
			OverdueHours: &hours,
		}
		if fine, err = repo.CreateFine(ctx, fine); err != nil {
			if pkgdb.IsUniqueViolation(err, "ux_fines_booking_late") {
				return errLateFineExists
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create late fine")
		}
		return s.outbox.Emit(ctx, tx, s.fineEvent(*fine))
	})
	// The partial unique index on late fines makes the loser of a concurrent
	// sweep a no-op.
	if errors.Is(err, errLateFineExists) {
		return nil
	}
	return err
}

// RecomputeOverdue re-runs the overdue assessment for a single booking on
// demand. Only confirmed, unreturned bookings can carry a provisional late
// fine; returned bookings are settled at return time.
func (s *service) RecomputeOverdue(ctx context.Context, bookingID uuid.UUID) error {
	if bookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.bookings.FindBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if booking.Status != enums.BookingStatusConfirmed || booking.ReturnedAt != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not an open rental")
	}
	return s.SweepOverdue(ctx, *booking, s.now())
}

func (s *service) CreateDamageFine(ctx context.Context, input DamageFineInput) (*models.Fine, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.ReportedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "reporter identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	booking, err := s.bookings.FindBooking(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	switch booking.Status {
	case enums.BookingStatusConfirmed, enums.BookingStatusCompleted:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "damage fines require a confirmed or completed booking")
	}

	reporter := input.ReportedBy
	var created *models.Fine
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		fine := &models.Fine{
			BookingID:    input.BookingID,
			Type:         enums.FineTypeDamage,
			Amount:       input.Amount,
			Reason:       input.Reason,
			Status:       enums.FineStatusPending,
			EvidenceRefs: pq.StringArray(input.EvidenceRefs),
			ReportedBy:   &reporter,
		}
		var err error
		if created, err = repo.CreateFine(ctx, fine); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create damage fine")
		}
		return s.outbox.Emit(ctx, tx, s.fineEvent(*created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) GetFine(ctx context.Context, fineID uuid.UUID) (*models.Fine, error) {
	if fineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine id required")
	}
	fine, err := s.repo.FindFine(ctx, fineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fine not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fine")
	}
	return fine, nil
}

func (s *service) ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Fine, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	fines, err := s.repo.ListFinesByBooking(ctx, bookingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fines")
	}
	return fines, nil
}

func (s *service) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Fine, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	fines, err := s.repo.ListFinesByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list fines")
	}
	return fines, nil
}

func (s *service) MarkFinePaid(ctx context.Context, fineID uuid.UUID) error {
	if fineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "fine id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		fine, err := repo.FindFineForUpdate(ctx, tx, fineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "fine not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fine")
		}
		switch fine.Status {
		case enums.FineStatusPaid:
			return nil
		case enums.FineStatusPending:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fine cannot be paid in current state")
		}
		return repo.UpdateFine(ctx, fine.ID, map[string]any{"status": enums.FineStatusPaid})
	})
}

func (s *service) RaiseDispute(ctx context.Context, input RaiseDisputeInput) (*models.Dispute, error) {
	if input.FineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fine id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}

	var created *models.Dispute
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		fine, err := repo.FindFineForUpdate(ctx, tx, input.FineID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "fine not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fine")
		}

		booking, err := s.bookings.FindBooking(ctx, fine.BookingID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "fine does not belong to customer")
		}

		if fine.Status != enums.FineStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending fines can be disputed")
		}
		if _, err := repo.FindOpenDisputeByFine(ctx, fine.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fine already has an open dispute")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open dispute")
		}

		dispute := &models.Dispute{
			FineID:    fine.ID,
			BookingID: fine.BookingID,
			RaisedBy:  input.CustomerID,
			Reason:    input.Reason,
			Status:    enums.DisputeStatusOpen,
		}
		if created, err = repo.CreateDispute(ctx, dispute); err != nil {
			if pkgdb.IsUniqueViolation(err, "ux_disputes_fine_open") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "fine already has an open dispute")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}
		if err := repo.UpdateFine(ctx, fine.ID, map[string]any{"status": enums.FineStatusDisputed}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark fine disputed")
		}
		return s.outbox.Emit(ctx, tx, s.disputeEvent(enums.EventDisputeRaised, *created, input.CustomerID, "customer"))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) StartReview(ctx context.Context, disputeID, reviewerID uuid.UUID) error {
	if disputeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if reviewerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "reviewer identity missing")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, err := repo.FindDisputeForUpdate(ctx, tx, disputeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
		}
		switch dispute.Status {
		case enums.DisputeStatusInReview:
			return nil
		case enums.DisputeStatusOpen:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is already closed")
		}
		return repo.UpdateDispute(ctx, dispute.ID, map[string]any{"status": enums.DisputeStatusInReview})
	})
}

// ResolveDispute closes a dispute. A resolved outcome settles the fine,
// optionally at an adjusted amount; a rejected outcome puts the fine back to
// pending. Closed disputes never change again.
func (s *service) ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.Dispute, error) {
	if input.DisputeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "reviewer identity missing")
	}
	outcome, err := enums.ParseDisputeOutcome(input.Outcome)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outcome must be resolved or rejected")
	}
	if input.AdjustedAmount != nil {
		if outcome != enums.DisputeOutcomeResolved {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjusted amount only applies to resolved disputes")
		}
		if input.AdjustedAmount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjusted amount must not be negative")
		}
	}

	var updated *models.Dispute
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, err := repo.FindDisputeForUpdate(ctx, tx, input.DisputeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute")
		}
		if dispute.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute is already closed")
		}

		now := s.now()
		reviewer := input.ReviewerID
		status := enums.DisputeStatusResolved
		if outcome == enums.DisputeOutcomeRejected {
			status = enums.DisputeStatusRejected
		}
		updates := map[string]any{
			"status":      status,
			"resolved_by": reviewer,
			"resolved_at": now,
		}
		if input.Notes != "" {
			updates["resolution_notes"] = input.Notes
		}
		if err := repo.UpdateDispute(ctx, dispute.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve dispute")
		}

		fineUpdates := map[string]any{}
		switch outcome {
		case enums.DisputeOutcomeResolved:
			fineUpdates["status"] = enums.FineStatusResolved
			if input.AdjustedAmount != nil {
				fineUpdates["amount"] = *input.AdjustedAmount
			}
		case enums.DisputeOutcomeRejected:
			fineUpdates["status"] = enums.FineStatusPending
		}
		if err := repo.UpdateFine(ctx, dispute.FineID, fineUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle fine")
		}

		dispute.Status = status
		dispute.ResolvedBy = &reviewer
		dispute.ResolvedAt = &now
		updated = dispute
		return s.outbox.Emit(ctx, tx, s.disputeEvent(enums.EventDisputeResolved, *dispute, reviewer, "reviewer"))
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) fineEvent(fine models.Fine) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventFineCreated,
		AggregateType: enums.AggregateFine,
		AggregateID:   fine.ID,
		Version:       1,
		Data: outbox.FineEventV1{
			FineID:    fine.ID,
			BookingID: fine.BookingID,
			Type:      string(fine.Type),
			Amount:    fine.Amount,
			Reason:    fine.Reason,
		},
	}
}

func (s *service) disputeEvent(eventType enums.OutboxEventType, dispute models.Dispute, actorID uuid.UUID, role string) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDispute,
		AggregateID:   dispute.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: actorID, Role: role},
		Data: outbox.DisputeEventV1{
			DisputeID:  dispute.ID,
			FineID:     dispute.FineID,
			BookingID:  dispute.BookingID,
			Status:     string(dispute.Status),
			ResolvedAt: dispute.ResolvedAt,
		},
	}
}
