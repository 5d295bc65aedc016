package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
)

func setupBookingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	rentalUnits := `
CREATE TABLE IF NOT EXISTS rental_units (
  id TEXT PRIMARY KEY,
  shop_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  price_per_day TEXT NOT NULL,
  delivery_available INTEGER NOT NULL DEFAULT 0,
  delivery_fee TEXT NOT NULL DEFAULT '0',
  available INTEGER NOT NULL DEFAULT 1,
  quantity INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	bookings := `
CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  unit_id TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  total_price TEXT NOT NULL,
  delivery_method TEXT NOT NULL DEFAULT 'pickup',
  confirmed_at DATETIME,
  cancelled_at DATETIME,
  returned_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	paymentIntents := `
CREATE TABLE IF NOT EXISTS payment_intents (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  gateway_order_id TEXT NOT NULL UNIQUE,
  gateway_payment_id TEXT,
  status TEXT NOT NULL DEFAULT 'created',
  verified_at DATETIME,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(rentalUnits).Error)
	require.NoError(t, db.Exec(bookings).Error)
	require.NoError(t, db.Exec(paymentIntents).Error)
	return db
}

func newUnit(t *testing.T, db *gorm.DB, quantity int) *models.RentalUnit {
	t.Helper()

	unit := &models.RentalUnit{
		ID:          uuid.New(),
		ShopID:      uuid.New(),
		Name:        "scaffold tower",
		Category:    "construction",
		Latitude:    52.52,
		Longitude:   13.405,
		PricePerDay: decimal.NewFromInt(40),
		Available:   true,
		Quantity:    quantity,
	}
	require.NoError(t, db.Create(unit).Error)
	return unit
}

func newBooking(t *testing.T, db *gorm.DB, unitID, customerID uuid.UUID, start, end time.Time, status enums.BookingStatus) *models.Booking {
	t.Helper()

	booking := &models.Booking{
		ID:             uuid.New(),
		CustomerID:     customerID,
		UnitID:         unitID,
		StartDate:      start,
		EndDate:        end,
		Status:         status,
		TotalPrice:     decimal.NewFromInt(80),
		DeliveryMethod: enums.DeliveryMethodPickup,
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

func TestCountBlocking(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 1)
	customer := uuid.New()
	newBooking(t, db, unit.ID, customer, date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusConfirmed)

	overlapping, err := repo.CountBlocking(ctx, unit.ID, date(2025, 4, 4), date(2025, 4, 6), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overlapping)

	// The end date is exclusive: starting on the day the other booking ends
	// is allowed.
	boundary, err := repo.CountBlocking(ctx, unit.ID, date(2025, 4, 5), date(2025, 4, 7), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), boundary)

	before, err := repo.CountBlocking(ctx, unit.ID, date(2025, 3, 28), date(2025, 4, 1), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), before)
}

func TestCountBlockingIgnoresClosedBookings(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 1)
	customer := uuid.New()
	newBooking(t, db, unit.ID, customer, date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusCancelled)

	returned := newBooking(t, db, unit.ID, customer, date(2025, 4, 2), date(2025, 4, 6), enums.BookingStatusConfirmed)
	returnedAt := date(2025, 4, 3)
	require.NoError(t, db.Model(returned).Updates(map[string]any{
		"status":      enums.BookingStatusCompleted,
		"returned_at": returnedAt,
	}).Error)

	count, err := repo.CountBlocking(ctx, unit.ID, date(2025, 4, 2), date(2025, 4, 6), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCountBlockingCountsPendingHolds(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 1)
	newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusPending)

	count, err := repo.CountBlocking(ctx, unit.ID, date(2025, 4, 3), date(2025, 4, 8), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCountBlockingExcludesGivenBooking(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 1)
	booking := newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusConfirmed)

	count, err := repo.CountBlocking(ctx, unit.ID, date(2025, 4, 5), date(2025, 4, 8), &booking.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestFindBookingPreloadsRelations(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 1)
	booking := newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusPending)
	intent := &models.PaymentIntent{
		ID:             uuid.New(),
		BookingID:      booking.ID,
		Amount:         booking.TotalPrice,
		GatewayOrderID: "kl_order_test",
		Status:         enums.PaymentIntentStatusCreated,
	}
	require.NoError(t, db.Create(intent).Error)

	found, err := repo.FindBooking(ctx, booking.ID)
	require.NoError(t, err)

	require.NotNil(t, found.Unit)
	assert.Equal(t, unit.Name, found.Unit.Name)
	require.NotNil(t, found.PaymentIntent)
	assert.Equal(t, "kl_order_test", found.PaymentIntent.GatewayOrderID)
}

func TestListCustomerBookings(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 3)
	customer := uuid.New()
	base := date(2025, 4, 1)
	for i := 0; i < 3; i++ {
		booking := newBooking(t, db, unit.ID, customer, base.AddDate(0, 0, i*10), base.AddDate(0, 0, i*10+2), enums.BookingStatusConfirmed)
		// Distinct created_at values keep the cursor ordering deterministic.
		require.NoError(t, db.Model(booking).Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}
	newBooking(t, db, unit.ID, uuid.New(), base, base.AddDate(0, 0, 2), enums.BookingStatusConfirmed)

	page, err := repo.ListCustomerBookings(ctx, customer, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Bookings, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.ListCustomerBookings(ctx, customer, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Bookings, 1)
	assert.Empty(t, rest.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, b := range append(page.Bookings, rest.Bookings...) {
		assert.False(t, seen[b.BookingID], "no booking repeats across pages")
		seen[b.BookingID] = true
	}
}

func TestListCustomerBookingsStatusFilter(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 2)
	customer := uuid.New()
	newBooking(t, db, unit.ID, customer, date(2025, 4, 1), date(2025, 4, 3), enums.BookingStatusPending)
	newBooking(t, db, unit.ID, customer, date(2025, 4, 10), date(2025, 4, 12), enums.BookingStatusCancelled)

	pending := enums.BookingStatusPending
	page, err := repo.ListCustomerBookings(ctx, customer, pagination.Params{}, ListFilters{Status: &pending})
	require.NoError(t, err)
	require.Len(t, page.Bookings, 1)
	assert.Equal(t, enums.BookingStatusPending, page.Bookings[0].Status)
}

func TestFindUnreturnedPastDue(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 3)
	overdue := newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusConfirmed)
	newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 20), enums.BookingStatusConfirmed)

	returned := newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusConfirmed)
	require.NoError(t, db.Model(returned).Update("returned_at", date(2025, 4, 5)).Error)

	rows, err := repo.FindUnreturnedPastDue(ctx, date(2025, 4, 10), 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, overdue.ID, rows[0].ID)
}

func TestFindStalePending(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 2)
	stale := newBooking(t, db, unit.ID, uuid.New(), date(2025, 5, 1), date(2025, 5, 3), enums.BookingStatusPending)
	require.NoError(t, db.Model(stale).Update("created_at", date(2025, 4, 1)).Error)

	fresh := newBooking(t, db, unit.ID, uuid.New(), date(2025, 5, 1), date(2025, 5, 3), enums.BookingStatusPending)
	require.NoError(t, db.Model(fresh).Update("created_at", date(2025, 4, 20)).Error)

	rows, err := repo.FindStalePending(ctx, date(2025, 4, 10))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID, rows[0].ID)
}

func TestUpdateBooking(t *testing.T) {
	db := setupBookingsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	unit := newUnit(t, db, 1)
	booking := newBooking(t, db, unit.ID, uuid.New(), date(2025, 4, 1), date(2025, 4, 5), enums.BookingStatusPending)

	confirmedAt := date(2025, 3, 30)
	require.NoError(t, repo.UpdateBooking(ctx, booking.ID, map[string]any{
		"status":       enums.BookingStatusConfirmed,
		"confirmed_at": confirmedAt,
	}))

	found, err := repo.FindBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusConfirmed, found.Status)
	require.NotNil(t, found.ConfirmedAt)
}
