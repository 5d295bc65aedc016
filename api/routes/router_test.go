package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/internal/bookings"
	"github.com/dmarroquin/kitloop-backend/internal/catalog"
	"github.com/dmarroquin/kitloop-backend/internal/payments"
	"github.com/dmarroquin/kitloop-backend/internal/penalties"
	"github.com/dmarroquin/kitloop-backend/internal/search"
	"github.com/dmarroquin/kitloop-backend/pkg/config"
	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/logger"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
	"github.com/dmarroquin/kitloop-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSearchService struct{}

func (stubSearchService) Search(ctx context.Context, query search.Query) (*search.ResultPage, error) {
	return &search.ResultPage{}, nil
}

type stubBookingService struct{}

func (stubBookingService) Create(ctx context.Context, input bookings.CreateInput) (*bookings.Detail, error) {
	panic("unimplemented")
}

func (stubBookingService) ConfirmPaymentTx(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID, now time.Time) error {
	panic("unimplemented")
}

func (stubBookingService) Extend(ctx context.Context, input bookings.ExtendInput) (*bookings.Detail, error) {
	panic("unimplemented")
}

func (stubBookingService) Cancel(ctx context.Context, input bookings.CancelInput) error {
	panic("unimplemented")
}

func (stubBookingService) ExpirePending(ctx context.Context, bookingID uuid.UUID) error {
	panic("unimplemented")
}

func (stubBookingService) Return(ctx context.Context, input bookings.ReturnInput) (*bookings.Detail, error) {
	panic("unimplemented")
}

func (stubBookingService) Get(ctx context.Context, bookingID, customerID uuid.UUID) (*bookings.Detail, error) {
	panic("unimplemented")
}

func (stubBookingService) List(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters bookings.ListFilters) (*bookings.BookingList, error) {
	return &bookings.BookingList{}, nil
}

type stubPaymentService struct{}

func (stubPaymentService) CreateIntent(ctx context.Context, input payments.CreateIntentInput) (*payments.IntentView, error) {
	panic("unimplemented")
}

func (stubPaymentService) GetIntentForBooking(ctx context.Context, bookingID, customerID uuid.UUID) (*payments.IntentView, error) {
	panic("unimplemented")
}

func (stubPaymentService) VerifyCallback(ctx context.Context, input payments.VerifyInput) (*payments.IntentView, error) {
	panic("unimplemented")
}

func (stubPaymentService) FailCallback(ctx context.Context, input payments.FailInput) error {
	panic("unimplemented")
}

type stubPenaltyService struct {
	markPaid func(ctx context.Context, fineID uuid.UUID) error
}

func (stubPenaltyService) AssessLateFineTx(ctx context.Context, tx *gorm.DB, booking models.Booking, returnedAt time.Time) (*models.Fine, error) {
	panic("unimplemented")
}

func (stubPenaltyService) SweepOverdue(ctx context.Context, booking models.Booking, asOf time.Time) error {
	panic("unimplemented")
}

func (stubPenaltyService) RecomputeOverdue(ctx context.Context, bookingID uuid.UUID) error {
	panic("unimplemented")
}

func (stubPenaltyService) CreateDamageFine(ctx context.Context, input penalties.DamageFineInput) (*models.Fine, error) {
	panic("unimplemented")
}

func (stubPenaltyService) GetFine(ctx context.Context, fineID uuid.UUID) (*models.Fine, error) {
	panic("unimplemented")
}

func (stubPenaltyService) ListForBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Fine, error) {
	panic("unimplemented")
}

func (stubPenaltyService) ListForCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Fine, error) {
	return nil, nil
}

func (s stubPenaltyService) MarkFinePaid(ctx context.Context, fineID uuid.UUID) error {
	if s.markPaid != nil {
		return s.markPaid(ctx, fineID)
	}
	return nil
}

func (stubPenaltyService) RaiseDispute(ctx context.Context, input penalties.RaiseDisputeInput) (*models.Dispute, error) {
	panic("unimplemented")
}

func (stubPenaltyService) StartReview(ctx context.Context, disputeID, reviewerID uuid.UUID) error {
	panic("unimplemented")
}

func (stubPenaltyService) ResolveDispute(ctx context.Context, input penalties.ResolveDisputeInput) (*models.Dispute, error) {
	panic("unimplemented")
}

type stubCatalogService struct{}

func (stubCatalogService) GetUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error) {
	panic("unimplemented")
}

func (stubCatalogService) GetRentableUnit(ctx context.Context, unitID uuid.UUID) (*models.RentalUnit, error) {
	panic("unimplemented")
}

func (stubCatalogService) ResolveFeePolicy(ctx context.Context, unitID uuid.UUID) (catalog.EffectivePolicy, error) {
	panic("unimplemented")
}

func (stubCatalogService) SetFeePolicy(ctx context.Context, policy *models.FeePolicy) error {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubSearchService{},
		stubBookingService{},
		stubPaymentService{},
		stubPenaltyService{},
		stubCatalogService{},
	)
}

func TestHealthLiveAlwaysResponds(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Kitloop-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestCustomerRoutesRejectMissingIdentity(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity got %d", resp.Code)
	}
}

func TestCustomerRoutesAcceptPerimeterIdentity(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("X-Customer-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with identity got %d", resp.Code)
	}
}

func TestSearchIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?lat=1&lng=2&start_date=2026-04-01&end_date=2026-04-05", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected public search to respond 200 got %d", resp.Code)
	}
}

func TestAdminRoutesRequireOpsRole(t *testing.T) {
	router := newTestRouter(testConfig())
	fineID := uuid.NewString()

	customer := httptest.NewRequest(http.MethodPost, "/api/v1/admin/fines/"+fineID+"/paid", nil)
	customer.Header.Set("X-Customer-Id", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer role got %d", resp.Code)
	}

	ops := httptest.NewRequest(http.MethodPost, "/api/v1/admin/fines/"+fineID+"/paid", nil)
	ops.Header.Set("X-Customer-Id", uuid.NewString())
	ops.Header.Set("X-Actor-Role", "ops")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, ops)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ops role got %d", resp.Code)
	}
}

func TestGatewayWebhookSkipsActorCheck(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gateway/payment", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code == http.StatusUnauthorized {
		t.Fatalf("webhook must not require perimeter identity")
	}
}
