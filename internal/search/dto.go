package search

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// Query describes the inputs supported by availability search. A nil radius
// leaves results unfiltered by distance; zero dates skip the temporal
// exclusion.
type Query struct {
	Latitude       float64
	Longitude      float64
	RadiusKm       *float64
	StartDate      time.Time
	EndDate        time.Time
	Category       string
	MaxPricePerDay *decimal.Decimal
	DeliveryOnly   bool
	Sort           enums.SearchSort
	Limit          int
	Offset         int
}

// UnitResult is one searchable unit annotated with its distance from the
// query point.
type UnitResult struct {
	UnitID            uuid.UUID       `json:"unit_id"`
	ShopID            uuid.UUID       `json:"shop_id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	PricePerDay       decimal.Decimal `json:"price_per_day"`
	DeliveryAvailable bool            `json:"delivery_available"`
	DeliveryFee       decimal.Decimal `json:"delivery_fee"`
	DistanceKm        float64         `json:"distance_km"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ResultPage wraps the matching units plus paging metadata.
type ResultPage struct {
	Units  []UnitResult `json:"units"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}
