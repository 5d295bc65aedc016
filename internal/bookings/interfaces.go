package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
)

// Repository defines persistence operations for booking rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	LockUnit(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) (*models.RentalUnit, error)
	FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	FindBookingForUpdate(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) (*models.Booking, error)
	CountBlocking(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (int64, error)
	UpdateBooking(ctx context.Context, bookingID uuid.UUID, updates map[string]any) error
	ListCustomerBookings(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error)
	FindUnreturnedPastDue(ctx context.Context, asOf time.Time, lookback time.Duration) ([]models.Booking, error)
	FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error)
}
