package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
	"github.com/dmarroquin/kitloop-backend/pkg/enums"
	"github.com/dmarroquin/kitloop-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBooking(ctx context.Context, booking *models.Booking) (*models.Booking, error) {
	if err := r.db.WithContext(ctx).Create(booking).Error; err != nil {
		return nil, err
	}
	return booking, nil
}

// LockUnit takes the unit row lock that serializes all interval writes for
// the unit. Must run inside the caller's transaction.
func (r *repository) LockUnit(ctx context.Context, tx *gorm.DB, unitID uuid.UUID) (*models.RentalUnit, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var unit models.RentalUnit
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", unitID).
		First(&unit).Error
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.db.WithContext(ctx).
		Preload("Unit").
		Preload("PaymentIntent").
		Where("id = ?", bookingID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repository) FindBookingForUpdate(ctx context.Context, tx *gorm.DB, bookingID uuid.UUID) (*models.Booking, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	var booking models.Booking
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", bookingID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// CountBlocking counts bookings that hold the unit over [start, end).
// Intervals are half-open, so back-to-back bookings sharing a boundary day
// do not collide.
func (r *repository) CountBlocking(ctx context.Context, unitID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (int64, error) {
	db := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("unit_id = ?", unitID).
		Where("status IN ?", []enums.BookingStatus{enums.BookingStatusPending, enums.BookingStatusConfirmed}).
		Where("returned_at IS NULL").
		Where("start_date < ? AND end_date > ?", end, start)
	if excludeBookingID != nil {
		db = db.Where("id <> ?", *excludeBookingID)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) UpdateBooking(ctx context.Context, bookingID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(updates).Error
}

func (r *repository) ListCustomerBookings(ctx context.Context, customerID uuid.UUID, params pagination.Params, filters ListFilters) (*BookingList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	db := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Preload("Unit").
		Where("customer_id = ?", customerID)
	if filters.Status != nil {
		db = db.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		db = db.Where("start_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		db = db.Where("end_date <= ?", *filters.DateTo)
	}
	if cursor != nil {
		db = db.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Booking
	err = db.Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	next := ""
	if len(rows) > limit {
		last := rows[limit-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}

	list := &BookingList{Bookings: make([]BookingSummary, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		summary := BookingSummary{
			BookingID:      row.ID,
			UnitID:         row.UnitID,
			StartDate:      row.StartDate.Format(DateLayout),
			EndDate:        row.EndDate.Format(DateLayout),
			Status:         row.Status,
			TotalPrice:     row.TotalPrice,
			DeliveryMethod: row.DeliveryMethod,
			CreatedAt:      row.CreatedAt,
		}
		if row.Unit != nil {
			summary.UnitName = row.Unit.Name
		}
		list.Bookings = append(list.Bookings, summary)
	}
	return list, nil
}

// FindStalePending returns pending bookings created before the cutoff whose
// payment never completed.
func (r *repository) FindStalePending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BookingStatusPending).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindUnreturnedPastDue returns confirmed bookings whose interval ended
// before asOf and were never returned. The lookback bounds the scan.
func (r *repository) FindUnreturnedPastDue(ctx context.Context, asOf time.Time, lookback time.Duration) ([]models.Booking, error) {
	var rows []models.Booking
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BookingStatusConfirmed).
		Where("returned_at IS NULL").
		Where("end_date <= ?", asOf).
		Where("end_date > ?", asOf.Add(-lookback)).
		Order("end_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
