package penalties

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/internal/catalog"
	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	pkgerrors "github.com/dmarroquin/kitloop-backend/pkg/errors"
	"github.com/dmarroquin/kitloop-backend/pkg/outbox"
)

type stubPenaltiesRepo struct {
	fine             *models.Fine
	dispute          *models.Dispute
	openDispute      *models.Dispute
	createdFine      *models.Fine
	createdDispute   *models.Dispute
	createFineErr    error
	createDisputeErr error
	fineUpdates      map[string]any
	disputeUpdates   map[string]any
}

func (s *stubPenaltiesRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPenaltiesRepo) CreateFine(ctx context.Context, fine *models.Fine) (*models.Fine, error) {
	if s.createFineErr != nil {
		return nil, s.createFineErr
	}
	if fine.ID == uuid.Nil {
		fine.ID = uuid.New()
	}
	s.createdFine = fine
	return fine, nil
}

func (s *stubPenaltiesRepo) FindFine(ctx context.Context, fineID uuid.UUID) (*models.Fine, error) {
	if s.fine == nil || s.fine.ID != fineID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.fine, nil
}

func (s *stubPenaltiesRepo) FindFineForUpdate(ctx context.Context, tx *gorm.DB, fineID uuid.UUID) (*models.Fine, error) {
	return s.FindFine(ctx, fineID)
}

func (s *stubPenaltiesRepo) FindLateFineByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Fine, error) {
	if s.fine == nil || s.fine.BookingID != bookingID || s.fine.Type != enums.FineTypeLate {
		return nil, gorm.ErrRecordNotFound
	}
	return s.fine, nil
}

func (s *stubPenaltiesRepo) UpdateFine(ctx context.Context, fineID uuid.UUID, updates map[string]any) error {
	s.fineUpdates = updates
	return nil
}

func (s *stubPenaltiesRepo) ListFinesByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Fine, error) {
	panic("not implemented")
}

func (s *stubPenaltiesRepo) ListFinesByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Fine, error) {
	panic("not implemented")
}

func (s *stubPenaltiesRepo) CreateDispute(ctx context.Context, dispute *models.Dispute) (*models.Dispute, error) {
	if s.createDisputeErr != nil {
		return nil, s.createDisputeErr
	}
	if dispute.ID == uuid.Nil {
		dispute.ID = uuid.New()
	}
	s.createdDispute = dispute
	return dispute, nil
}

func (s *stubPenaltiesRepo) FindDispute(ctx context.Context, disputeID uuid.UUID) (*models.Dispute, error) {
	if s.dispute == nil || s.dispute.ID != disputeID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.dispute, nil
}

func (s *stubPenaltiesRepo) FindDisputeForUpdate(ctx context.Context, tx *gorm.DB, disputeID uuid.UUID) (*models.Dispute, error) {
	return s.FindDispute(ctx, disputeID)
}

func (s *stubPenaltiesRepo) FindOpenDisputeByFine(ctx context.Context, fineID uuid.UUID) (*models.Dispute, error) {
	if s.openDispute == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.openDispute, nil
}

func (s *stubPenaltiesRepo) UpdateDispute(ctx context.Context, disputeID uuid.UUID, updates map[string]any) error {
	s.disputeUpdates = updates
	return nil
}

type stubPolicyResolver struct {
	policy catalog.EffectivePolicy
}

func (s *stubPolicyResolver) ResolveFeePolicy(ctx context.Context, unitID uuid.UUID) (catalog.EffectivePolicy, error) {
	return s.policy, nil
}

type stubBookingReader struct {
	booking *models.Booking
}

func (s *stubBookingReader) FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if s.booking == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.booking, nil
}

type stubPenaltiesTx struct{}

func (stubPenaltiesTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubPenaltiesOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubPenaltiesOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func standardPolicy() catalog.EffectivePolicy {
	return catalog.EffectivePolicy{
		GraceMinutes:   30,
		LateFeePerHour: decimal.NewFromInt(100),
	}
}

func newPenaltyService(t *testing.T, repo *stubPenaltiesRepo, bookings *stubBookingReader, ob *stubPenaltiesOutbox) *service {
	t.Helper()
	svc, err := NewService(repo, &stubPolicyResolver{policy: standardPolicy()}, bookings, stubPenaltiesTx{}, ob, nil, 720)
	require.NoError(t, err)
	return svc.(*service)
}

func TestLateFee(t *testing.T) {
	policy := standardPolicy()
	due := day(2025, 4, 12)

	cases := []struct {
		name      string
		at        time.Time
		wantHours int
		wantFee   int64
	}{
		{"on time", due, 0, 0},
		{"inside grace", due.Add(30 * time.Minute), 0, 0},
		{"one minute past grace", due.Add(31 * time.Minute), 1, 100},
		{"just under two hours", due.Add(90 * time.Minute), 2, 200},
		{"exact hour boundary", due.Add(2 * time.Hour), 2, 200},
		{"five hours", due.Add(4*time.Hour + time.Minute), 5, 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hours, fee := LateFee(policy, due, tc.at, 720)
			assert.Equal(t, tc.wantHours, hours)
			assert.True(t, fee.Equal(decimal.NewFromInt(tc.wantFee)), "want %d got %s", tc.wantFee, fee)
		})
	}
}

func TestLateFeeCap(t *testing.T) {
	policy := standardPolicy()
	due := day(2025, 4, 12)

	hours, fee := LateFee(policy, due, due.Add(100*24*time.Hour), 720)
	assert.Equal(t, 720, hours)
	assert.True(t, fee.Equal(decimal.NewFromInt(72000)))
}

func TestAssessLateFineCreatesFine(t *testing.T) {
	booking := models.Booking{
		ID:        uuid.New(),
		UnitID:    uuid.New(),
		StartDate: day(2025, 4, 10),
		EndDate:   day(2025, 4, 12),
	}
	repo := &stubPenaltiesRepo{}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, ob)

	fine, err := svc.AssessLateFineTx(context.Background(), &gorm.DB{}, booking, day(2025, 4, 12).Add(3*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, fine)

	assert.Equal(t, enums.FineTypeLate, fine.Type)
	assert.Equal(t, enums.FineStatusPending, fine.Status)
	require.NotNil(t, fine.OverdueHours)
	assert.Equal(t, 3, *fine.OverdueHours)
	assert.True(t, fine.Amount.Equal(decimal.NewFromInt(300)))
	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventFineCreated, ob.events[0].EventType)
}

func TestAssessLateFineOnTimeIsNoop(t *testing.T) {
	booking := models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
	}
	repo := &stubPenaltiesRepo{}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, ob)

	fine, err := svc.AssessLateFineTx(context.Background(), &gorm.DB{}, booking, day(2025, 4, 12).Add(20*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, fine)
	assert.Nil(t, repo.createdFine)
	assert.Empty(t, ob.events)
}

func TestAssessLateFineFinalizesProvisional(t *testing.T) {
	booking := models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
	}
	hours := 48
	repo := &stubPenaltiesRepo{
		fine: &models.Fine{
			ID:           uuid.New(),
			BookingID:    booking.ID,
			Type:         enums.FineTypeLate,
			Status:       enums.FineStatusPending,
			Amount:       decimal.NewFromInt(4800),
			OverdueHours: &hours,
		},
	}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, ob)

	fine, err := svc.AssessLateFineTx(context.Background(), &gorm.DB{}, booking, day(2025, 4, 12).Add(50*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, fine)

	assert.Equal(t, 50, repo.fineUpdates["overdue_hours"])
	assert.Nil(t, repo.createdFine, "provisional fine is updated, not duplicated")
	assert.Empty(t, ob.events, "the sweep already announced the fine")
}

func TestAssessLateFineSkipsDisputedProvisional(t *testing.T) {
	booking := models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
	}
	repo := &stubPenaltiesRepo{
		fine: &models.Fine{
			ID:        uuid.New(),
			BookingID: booking.ID,
			Type:      enums.FineTypeLate,
			Status:    enums.FineStatusDisputed,
			Amount:    decimal.NewFromInt(4800),
		},
	}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

	fine, err := svc.AssessLateFineTx(context.Background(), &gorm.DB{}, booking, day(2025, 4, 12).Add(50*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, fine)
	assert.Nil(t, repo.fineUpdates, "disputed amounts are frozen until review")
}

func TestSweepOverdueRefreshesPendingFine(t *testing.T) {
	booking := models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
	}
	hours := 2
	repo := &stubPenaltiesRepo{
		fine: &models.Fine{
			ID:           uuid.New(),
			BookingID:    booking.ID,
			Type:         enums.FineTypeLate,
			Status:       enums.FineStatusPending,
			Amount:       decimal.NewFromInt(200),
			OverdueHours: &hours,
		},
	}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

	require.NoError(t, svc.SweepOverdue(context.Background(), booking, day(2025, 4, 12).Add(6*time.Hour)))
	assert.Equal(t, 6, repo.fineUpdates["overdue_hours"])
}

func TestSweepOverdueWithinGraceIsNoop(t *testing.T) {
	booking := models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
	}
	repo := &stubPenaltiesRepo{}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

	require.NoError(t, svc.SweepOverdue(context.Background(), booking, day(2025, 4, 12).Add(10*time.Minute)))
	assert.Nil(t, repo.createdFine)
}

func TestSweepOverdueLosingCreateRaceIsNoop(t *testing.T) {
	booking := models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
	}
	repo := &stubPenaltiesRepo{
		createFineErr: errors.New(`duplicate key value violates unique constraint "ux_fines_booking_late"`),
	}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

	require.NoError(t, svc.SweepOverdue(context.Background(), booking, day(2025, 4, 12).Add(6*time.Hour)))
}

func TestRecomputeOverdueCreatesProvisionalFine(t *testing.T) {
	booking := &models.Booking{
		ID:      uuid.New(),
		UnitID:  uuid.New(),
		EndDate: day(2025, 4, 12),
		Status:  enums.BookingStatusConfirmed,
	}
	repo := &stubPenaltiesRepo{}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{booking: booking}, ob)
	svc.now = func() time.Time { return day(2025, 4, 12).Add(3 * time.Hour) }

	require.NoError(t, svc.RecomputeOverdue(context.Background(), booking.ID))
	require.NotNil(t, repo.createdFine)
	require.NotNil(t, repo.createdFine.OverdueHours)
	assert.Equal(t, 3, *repo.createdFine.OverdueHours)
	assert.True(t, repo.createdFine.Amount.Equal(decimal.NewFromInt(300)))
	require.Len(t, ob.events, 1)
}

func TestRecomputeOverdueRejectsReturnedBooking(t *testing.T) {
	returnedAt := day(2025, 4, 13)
	booking := &models.Booking{
		ID:         uuid.New(),
		UnitID:     uuid.New(),
		EndDate:    day(2025, 4, 12),
		Status:     enums.BookingStatusConfirmed,
		ReturnedAt: &returnedAt,
	}
	svc := newPenaltyService(t, &stubPenaltiesRepo{}, &stubBookingReader{booking: booking}, &stubPenaltiesOutbox{})

	err := svc.RecomputeOverdue(context.Background(), booking.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestCreateDamageFine(t *testing.T) {
	booking := &models.Booking{
		ID:     uuid.New(),
		Status: enums.BookingStatusCompleted,
	}
	repo := &stubPenaltiesRepo{}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{booking: booking}, ob)

	fine, err := svc.CreateDamageFine(context.Background(), DamageFineInput{
		BookingID:    booking.ID,
		Amount:       decimal.NewFromInt(250),
		Reason:       "cracked frame",
		EvidenceRefs: []string{"photos/frame-1.jpg"},
		ReportedBy:   uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, enums.FineTypeDamage, fine.Type)
	assert.Equal(t, enums.FineStatusPending, fine.Status)
	require.Len(t, ob.events, 1)
}

func TestCreateDamageFineRequiresConfirmedOrCompleted(t *testing.T) {
	booking := &models.Booking{
		ID:     uuid.New(),
		Status: enums.BookingStatusPending,
	}
	svc := newPenaltyService(t, &stubPenaltiesRepo{}, &stubBookingReader{booking: booking}, &stubPenaltiesOutbox{})

	_, err := svc.CreateDamageFine(context.Background(), DamageFineInput{
		BookingID:  booking.ID,
		Amount:     decimal.NewFromInt(250),
		Reason:     "cracked frame",
		ReportedBy: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestRaiseDispute(t *testing.T) {
	customerID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID}
	fine := &models.Fine{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Type:      enums.FineTypeLate,
		Status:    enums.FineStatusPending,
	}
	repo := &stubPenaltiesRepo{fine: fine}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{booking: booking}, ob)

	dispute, err := svc.RaiseDispute(context.Background(), RaiseDisputeInput{
		FineID:     fine.ID,
		CustomerID: customerID,
		Reason:     "returned on time, scanner was offline",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusOpen, dispute.Status)
	assert.Equal(t, enums.FineStatusDisputed, repo.fineUpdates["status"])
	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventDisputeRaised, ob.events[0].EventType)
}

func TestRaiseDisputeRejectsSecondOpenDispute(t *testing.T) {
	customerID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID}
	fine := &models.Fine{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Status:    enums.FineStatusPending,
	}
	repo := &stubPenaltiesRepo{
		fine:        fine,
		openDispute: &models.Dispute{ID: uuid.New(), FineID: fine.ID, Status: enums.DisputeStatusOpen},
	}
	svc := newPenaltyService(t, repo, &stubBookingReader{booking: booking}, &stubPenaltiesOutbox{})

	_, err := svc.RaiseDispute(context.Background(), RaiseDisputeInput{
		FineID:     fine.ID,
		CustomerID: customerID,
		Reason:     "still disagree",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Nil(t, repo.createdDispute)
}

func TestRaiseDisputeLosingCreateRaceIsStateConflict(t *testing.T) {
	customerID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID}
	fine := &models.Fine{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Status:    enums.FineStatusPending,
	}
	repo := &stubPenaltiesRepo{
		fine:             fine,
		createDisputeErr: errors.New(`duplicate key value violates unique constraint "ux_disputes_fine_open"`),
	}
	svc := newPenaltyService(t, repo, &stubBookingReader{booking: booking}, &stubPenaltiesOutbox{})

	_, err := svc.RaiseDispute(context.Background(), RaiseDisputeInput{
		FineID:     fine.ID,
		CustomerID: customerID,
		Reason:     "concurrent submission from a second tab",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestRaiseDisputeRequiresPendingFine(t *testing.T) {
	customerID := uuid.New()
	booking := &models.Booking{ID: uuid.New(), CustomerID: customerID}
	fine := &models.Fine{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Status:    enums.FineStatusPaid,
	}
	svc := newPenaltyService(t, &stubPenaltiesRepo{fine: fine}, &stubBookingReader{booking: booking}, &stubPenaltiesOutbox{})

	_, err := svc.RaiseDispute(context.Background(), RaiseDisputeInput{
		FineID:     fine.ID,
		CustomerID: customerID,
		Reason:     "too late",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestRaiseDisputeForbiddenForOtherCustomer(t *testing.T) {
	booking := &models.Booking{ID: uuid.New(), CustomerID: uuid.New()}
	fine := &models.Fine{
		ID:        uuid.New(),
		BookingID: booking.ID,
		Status:    enums.FineStatusPending,
	}
	svc := newPenaltyService(t, &stubPenaltiesRepo{fine: fine}, &stubBookingReader{booking: booking}, &stubPenaltiesOutbox{})

	_, err := svc.RaiseDispute(context.Background(), RaiseDisputeInput{
		FineID:     fine.ID,
		CustomerID: uuid.New(),
		Reason:     "not mine",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestResolveDisputeSettlesFine(t *testing.T) {
	dispute := &models.Dispute{
		ID:     uuid.New(),
		FineID: uuid.New(),
		Status: enums.DisputeStatusInReview,
	}
	repo := &stubPenaltiesRepo{dispute: dispute}
	ob := &stubPenaltiesOutbox{}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, ob)

	adjusted := decimal.NewFromInt(50)
	updated, err := svc.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:      dispute.ID,
		ReviewerID:     uuid.New(),
		Outcome:        "resolved",
		Notes:          "partial waiver, scanner outage confirmed",
		AdjustedAmount: &adjusted,
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusResolved, updated.Status)
	assert.Equal(t, enums.FineStatusResolved, repo.fineUpdates["status"])
	assert.Equal(t, adjusted, repo.fineUpdates["amount"])
	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventDisputeResolved, ob.events[0].EventType)
}

func TestResolveDisputeRejectedReturnsFineToPending(t *testing.T) {
	dispute := &models.Dispute{
		ID:     uuid.New(),
		FineID: uuid.New(),
		Status: enums.DisputeStatusOpen,
	}
	repo := &stubPenaltiesRepo{dispute: dispute}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

	updated, err := svc.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:  dispute.ID,
		ReviewerID: uuid.New(),
		Outcome:    "rejected",
	})
	require.NoError(t, err)

	assert.Equal(t, enums.DisputeStatusRejected, updated.Status)
	assert.Equal(t, enums.FineStatusPending, repo.fineUpdates["status"])
	_, hasAmount := repo.fineUpdates["amount"]
	assert.False(t, hasAmount)
}

func TestResolveDisputeTerminalIsImmutable(t *testing.T) {
	for _, status := range []enums.DisputeStatus{enums.DisputeStatusResolved, enums.DisputeStatusRejected} {
		dispute := &models.Dispute{
			ID:     uuid.New(),
			FineID: uuid.New(),
			Status: status,
		}
		repo := &stubPenaltiesRepo{dispute: dispute}
		svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

		_, err := svc.ResolveDispute(context.Background(), ResolveDisputeInput{
			DisputeID:  dispute.ID,
			ReviewerID: uuid.New(),
			Outcome:    "resolved",
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
		assert.Nil(t, repo.disputeUpdates)
	}
}

func TestResolveDisputeValidatesAdjustedAmount(t *testing.T) {
	svc := newPenaltyService(t, &stubPenaltiesRepo{}, &stubBookingReader{}, &stubPenaltiesOutbox{})

	negative := decimal.NewFromInt(-10)
	_, err := svc.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:      uuid.New(),
		ReviewerID:     uuid.New(),
		Outcome:        "resolved",
		AdjustedAmount: &negative,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	adjusted := decimal.NewFromInt(10)
	_, err = svc.ResolveDispute(context.Background(), ResolveDisputeInput{
		DisputeID:      uuid.New(),
		ReviewerID:     uuid.New(),
		Outcome:        "rejected",
		AdjustedAmount: &adjusted,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestMarkFinePaid(t *testing.T) {
	fine := &models.Fine{ID: uuid.New(), Status: enums.FineStatusPending}
	repo := &stubPenaltiesRepo{fine: fine}
	svc := newPenaltyService(t, repo, &stubBookingReader{}, &stubPenaltiesOutbox{})

	require.NoError(t, svc.MarkFinePaid(context.Background(), fine.ID))
	assert.Equal(t, enums.FineStatusPaid, repo.fineUpdates["status"])

	// Paying a paid fine changes nothing.
	fine.Status = enums.FineStatusPaid
	repo.fineUpdates = nil
	require.NoError(t, svc.MarkFinePaid(context.Background(), fine.ID))
	assert.Nil(t, repo.fineUpdates)

	fine.Status = enums.FineStatusDisputed
	err := svc.MarkFinePaid(context.Background(), fine.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}
