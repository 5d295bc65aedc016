package search

import (
	"context"
	"math"

	"gorm.io/gorm"

	"github.com/dmarroquin/kitloop-backend/pkg/db/models"
)

// Repository loads units that could satisfy an availability query.
type Repository interface {
	FindCandidates(ctx context.Context, q Query) ([]models.RentalUnit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a search repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// kmPerDegreeLat is close enough for a bounding-box prefilter; exact
// distances are recomputed in the service.
const kmPerDegreeLat = 111.045

// FindCandidates returns available units whose interval is free of blocking
// bookings. With a radius the scan is prefiltered to the query's bounding
// box; the box over-selects near the poles and the service applies the exact
// radius cut. Without a radius every available unit is a candidate.
func (r *repository) FindCandidates(ctx context.Context, q Query) ([]models.RentalUnit, error) {
	db := r.db.WithContext(ctx).
		Model(&models.RentalUnit{}).
		Where("available = ?", true)

	if q.RadiusKm != nil {
		latDelta := *q.RadiusKm / kmPerDegreeLat
		cosLat := math.Cos(q.Latitude * math.Pi / 180)
		lngDelta := 180.0
		if cosLat > 1e-6 {
			lngDelta = *q.RadiusKm / (kmPerDegreeLat * cosLat)
		}
		db = db.Where("latitude BETWEEN ? AND ?", q.Latitude-latDelta, q.Latitude+latDelta)
		if lngDelta < 180 {
			db = db.Where("longitude BETWEEN ? AND ?", q.Longitude-lngDelta, q.Longitude+lngDelta)
		}
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.MaxPricePerDay != nil {
		db = db.Where("price_per_day <= ?", q.MaxPricePerDay)
	}
	if q.DeliveryOnly {
		db = db.Where("delivery_available = ?", true)
	}

	// A unit is free when the bookings holding it over the requested interval
	// leave at least one of its quantity unclaimed. Intervals are half-open,
	// so a booking ending on the requested start day does not block. Queries
	// without an interval skip the exclusion entirely.
	if !q.StartDate.IsZero() {
		db = db.Where(`quantity > (
			SELECT COUNT(*) FROM bookings b
			WHERE b.unit_id = rental_units.id
			  AND b.status IN ('pending', 'confirmed')
			  AND b.returned_at IS NULL
			  AND b.start_date < ?
			  AND b.end_date > ?
		)`, q.EndDate, q.StartDate)
	}

	var units []models.RentalUnit
	if err := db.Order("created_at DESC").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}
