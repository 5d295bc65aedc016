package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/outbox"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type unitReader interface {
	GetRentableUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error)
}

// LateFineAssessor creates the late fine for an overdue return inside the
// caller's transaction.
type LateFineAssessor interface {
	AssessLateFineTx(ctx context.Context, tx *gorm.DB, booking models.Booking, returnedAt time.Time) (*models.Fine, error)
}

// UnitLocker narrows the window for concurrent writers on one unit. The row
// lock taken inside the transaction remains authoritative.
type UnitLocker interface {
	WithLock(ctx context.Context, unitID string, fn func() error) error
}

// Service defines the booking lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*Detail, error)
	ConfirmPaymentTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, now time.Time) error
	Extend(ctx context.Context, input ExtendInput) (*Detail, error)
	Cancel(ctx context.Context, input CancelInput) error
	ExpirePending(ctx context.Context, bookingID uuid.UUID) error
	Return(ctx context.Context, input ReturnInput) (*Detail, error)
	Get(ctx context.Context, bookingID, customerID uuid.UUID) (*Detail, error)
	List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error)
}

type service struct {
	repo   Repository
	units  unitReader
	tx     txRunner
	outbox outboxPublisher
	fines  LateFineAssessor
	locks  UnitLocker
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a booking service with the required dependencies. The
// locker may be nil; single-instance deployments rely on the DB lock alone.
func NewService(repo Repository, units unitReader, tx txRunner, ob outboxPublisher, fines LateFineAssessor, locks UnitLocker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if fines == nil {
		return nil, fmt.Errorf("late fine assessor required")
	}
	return &service{
		repo:   repo,
		units:  units,
		tx:     tx,
		outbox: ob,
		fines:  fines,
		locks:  locks,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// EffectiveStatus projects the stored status onto the lifecycle the customer
// sees. Active is never stored: a confirmed booking becomes active the
// moment its start day begins and stays active until returned.
func EffectiveStatus(b models.Booking, now time.Time) enums.BookingStatus {
	if b.Status != enums.BookingStatusConfirmed {
		return b.Status
	}
	if b.ReturnedAt != nil {
		return enums.BookingStatusCompleted
	}
	if now.Before(startOfDay(b.StartDate)) {
		return enums.BookingStatusConfirmed
	}
	return enums.BookingStatusActive
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Detail, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	if input.UnitID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit id required")
	}
	start, end, err := normalizeInterval(input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	if start.Before(startOfDay(s.now())) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date must not be in the past")
	}
	if input.DeliveryMethod == "" {
		input.DeliveryMethod = enums.DeliveryMethodPickup
	}
	if !input.DeliveryMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}

	unit, err := s.units.GetRentableUnit(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	if input.DeliveryMethod == enums.DeliveryMethodDelivery && !unit.DeliveryAvailable {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit does not offer delivery")
	}

	total := priceFor(unit, start, end, input.DeliveryMethod)

	var created *models.Booking
	err = s.withUnitLock(ctx, input.UnitID, func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			locked, err := repo.LockUnit(ctx, tx, input.UnitID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock unit")
			}
			blocking, err := repo.CountBlocking(ctx, input.UnitID, start, end, nil)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count blocking bookings")
			}
			if blocking >= int64(locked.Quantity) {
				return pkgerrors.New(pkgerrors.CodeConflict, "interval no longer available").
					WithDetails(map[string]any{
						"unit_id":    input.UnitID,
						"start_date": start.Format(DateLayout),
						"end_date":   end.Format(DateLayout),
					})
			}
			booking := &models.Booking{
				CustomerID:     input.CustomerID,
				UnitID:         input.UnitID,
				StartDate:      start,
				EndDate:        end,
				Status:         enums.BookingStatusPending,
				TotalPrice:     total,
				DeliveryMethod: input.DeliveryMethod,
			}
			created, err = repo.CreateBooking(ctx, booking)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, created.ID.String())
		s.logg.Info(logCtx, "booking created")
	}
	return s.detail(created), nil
}

// ConfirmPaymentTx moves a pending booking to confirmed inside the payment
// verification transaction. Re-verification of an already confirmed booking
// is a no-op.
func (s *service) ConfirmPaymentTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, now time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	repo := s.repo.WithTx(tx)
	booking, err := repo.FindBookingForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}

	switch booking.Status {
	case enums.BookingStatusConfirmed:
		return nil
	case enums.BookingStatusPending:
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot be confirmed in current state")
	}

	err = repo.UpdateBooking(ctx, booking.ID, map[string]any{
		"status":       enums.BookingStatusConfirmed,
		"confirmed_at": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm booking")
	}

	booking.Status = enums.BookingStatusConfirmed
	return s.outbox.Emit(ctx, tx, s.bookingEvent(enums.EventBookingConfirmed, *booking))
}

func (s *service) Extend(ctx context.Context, input ExtendInput) (*Detail, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	newEnd := startOfDay(input.NewEndDate)
	if newEnd.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "new end date required")
	}

	var updated *models.Booking
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindBookingForUpdate(ctx, tx, input.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to customer")
		}
		switch EffectiveStatus(*booking, s.now()) {
		case enums.BookingStatusConfirmed, enums.BookingStatusActive:
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only confirmed or active bookings can be extended")
		}
		if !newEnd.After(booking.EndDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "new end date must extend the booking")
		}

		unit, err := repo.LockUnit(ctx, tx, booking.UnitID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock unit")
		}

		// Only the added tail [old end, new end) must be free.
		exclude := booking.ID
		blocking, err := repo.CountBlocking(ctx, booking.UnitID, booking.EndDate, newEnd, &exclude)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count blocking bookings")
		}
		if blocking >= int64(unit.Quantity) {
			return pkgerrors.New(pkgerrors.CodeConflict, "interval no longer available").
				WithDetails(map[string]any{
					"unit_id":    booking.UnitID,
					"start_date": booking.EndDate.Format(DateLayout),
					"end_date":   newEnd.Format(DateLayout),
				})
		}

		extraDays := daysBetween(booking.EndDate, newEnd)
		newTotal := booking.TotalPrice.Add(unit.PricePerDay.Mul(decimal.NewFromInt(int64(extraDays))))

		err = repo.UpdateBooking(ctx, booking.ID, map[string]any{
			"end_date":    newEnd,
			"total_price": newTotal,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "extend booking")
		}
		booking.EndDate = newEnd
		booking.TotalPrice = newTotal
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.detail(updated), nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.BookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.CustomerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindBookingForUpdate(ctx, tx, input.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to customer")
		}

		now := s.now()
		switch booking.Status {
		case enums.BookingStatusPending:
		case enums.BookingStatusConfirmed:
			if !now.Before(startOfDay(booking.StartDate)) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "booking already started")
			}
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking cannot be cancelled in current state")
		}

		err = repo.UpdateBooking(ctx, booking.ID, map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel booking")
		}
		booking.Status = enums.BookingStatusCancelled
		return s.outbox.Emit(ctx, tx, s.bookingEvent(enums.EventBookingCancelled, *booking))
	})
}

// ExpirePending releases the interval held by a pending booking whose
// payment never arrived. Bookings that got confirmed or cancelled in the
// meantime are left alone.
func (s *service) ExpirePending(ctx context.Context, bookingID uuid.UUID) error {
	if bookingID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindBookingForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusPending {
			return nil
		}
		err = repo.UpdateBooking(ctx, booking.ID, map[string]any{
			"status":       enums.BookingStatusCancelled,
			"cancelled_at": s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire booking")
		}
		booking.Status = enums.BookingStatusCancelled
		return s.outbox.Emit(ctx, tx, s.bookingEvent(enums.EventBookingCancelled, *booking))
	})
}

func (s *service) Return(ctx context.Context, input ReturnInput) (*Detail, error) {
	if input.BookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	returnedAt := input.ReturnedAt
	if returnedAt.IsZero() {
		returnedAt = s.now()
	}

	var updated *models.Booking
	var assessed *models.Fine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		booking, err := repo.FindBookingForUpdate(ctx, tx, input.BookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.CustomerID != input.CustomerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to customer")
		}
		if EffectiveStatus(*booking, returnedAt) != enums.BookingStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only active bookings can be returned")
		}

		err = repo.UpdateBooking(ctx, booking.ID, map[string]any{
			"status":      enums.BookingStatusCompleted,
			"returned_at": returnedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete booking")
		}
		booking.Status = enums.BookingStatusCompleted
		booking.ReturnedAt = &returnedAt

		if assessed, err = s.fines.AssessLateFineTx(ctx, tx, *booking, returnedAt); err != nil {
			return err
		}

		updated = booking
		return s.outbox.Emit(ctx, tx, s.bookingEvent(enums.EventBookingCompleted, *booking))
	})
	if err != nil {
		return nil, err
	}

	detail := s.detail(updated)
	if assessed != nil {
		detail.Fines = []FineSummary{{
			FineID:       assessed.ID,
			Type:         assessed.Type,
			Amount:       assessed.Amount,
			Status:       assessed.Status,
			OverdueHours: assessed.OverdueHours,
		}}
	}
	return detail, nil
}

func (s *service) Get(ctx context.Context, bookingID, customerID uuid.UUID) (*Detail, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id required")
	}
	booking, err := s.repo.FindBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	if customerID != uuid.Nil && booking.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking does not belong to customer")
	}
	return s.detail(booking), nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	// Active is a projection over confirmed rows; translate before querying.
	wantActive := false
	if filters.Status != nil && *filters.Status == enums.BookingStatusActive {
		confirmed := enums.BookingStatusConfirmed
		filters.Status = &confirmed
		wantActive = true
	}

	list, err := s.repo.ListCustomerBookings(ctx, customerID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}

	now := s.now()
	out := make([]BookingSummary, 0, len(list.Bookings))
	for _, summary := range list.Bookings {
		projected := projectSummaryStatus(summary, now)
		if wantActive && projected.Status != enums.BookingStatusActive {
			continue
		}
		out = append(out, projected)
	}
	list.Bookings = out
	return list, nil
}

func projectSummaryStatus(summary BookingSummary, now time.Time) BookingSummary {
	if summary.Status != enums.BookingStatusConfirmed {
		return summary
	}
	start, err := time.ParseInLocation(DateLayout, summary.StartDate, time.UTC)
	if err == nil && !now.Before(start) {
		summary.Status = enums.BookingStatusActive
	}
	return summary
}

func (s *service) detail(b *models.Booking) *Detail {
	d := &Detail{
		BookingID:      b.ID,
		CustomerID:     b.CustomerID,
		UnitID:         b.UnitID,
		StartDate:      b.StartDate.Format(DateLayout),
		EndDate:        b.EndDate.Format(DateLayout),
		Status:         EffectiveStatus(*b, s.now()),
		TotalPrice:     b.TotalPrice,
		DeliveryMethod: b.DeliveryMethod,
		ConfirmedAt:    b.ConfirmedAt,
		CancelledAt:    b.CancelledAt,
		ReturnedAt:     b.ReturnedAt,
		CreatedAt:      b.CreatedAt,
	}
	if b.PaymentIntent != nil {
		status := string(b.PaymentIntent.Status)
		d.PaymentStatus = &status
	}
	return d
}

func (s *service) bookingEvent(eventType enums.OutboxEventType, b models.Booking) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBooking,
		AggregateID:   b.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{UserID: b.CustomerID, Role: "customer"},
		Data: outbox.BookingEventV1{
			BookingID:  b.ID,
			CustomerID: b.CustomerID,
			UnitID:     b.UnitID,
			StartDate:  b.StartDate.Format(DateLayout),
			EndDate:    b.EndDate.Format(DateLayout),
			Status:     string(b.Status),
			TotalPrice: b.TotalPrice,
		},
	}
}

func (s *service) withUnitLock(ctx context.Context, unitID uuid.UUID, fn func() error) error {
	if s.locks == nil {
		return fn()
	}
	return s.locks.WithLock(ctx, unitID.String(), fn)
}

func normalizeInterval(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	s := startOfDay(start)
	e := startOfDay(end)
	if !e.After(s) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	return s, e, nil
}

func priceFor(unit *models.RentalUnit, start, end time.Time, method enums.DeliveryMethod) decimal.Decimal {
	days := daysBetween(start, end)
	total := unit.PricePerDay.Mul(decimal.NewFromInt(int64(days)))
	if method == enums.DeliveryMethodDelivery {
		total = total.Add(unit.DeliveryFee)
	}
	return total
}

func daysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
