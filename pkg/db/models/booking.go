package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// Booking reserves a unit over the half-open interval [StartDate, EndDate).
// Rows are never deleted; the lifecycle ends at completed or cancelled.
type Booking struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	UnitID         uuid.UUID            `gorm:"column:unit_id;type:uuid;not null;index"`
	StartDate      time.Time            `gorm:"column:start_date;type:date;not null"`
	EndDate        time.Time            `gorm:"column:end_date;type:date;not null"`
	Status         enums.BookingStatus  `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	TotalPrice     decimal.Decimal      `gorm:"column:total_price;type:numeric(12,2);not null"`
	DeliveryMethod enums.DeliveryMethod `gorm:"column:delivery_method;type:delivery_method;not null;default:'pickup'"`
	ConfirmedAt    *time.Time           `gorm:"column:confirmed_at"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	ReturnedAt     *time.Time           `gorm:"column:returned_at"`
	Unit           *RentalUnit          `gorm:"foreignKey:UnitID"`
	PaymentIntent  *PaymentIntent       `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	Fines          []Fine               `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// Days returns the billable length of the reserved interval.
func (b Booking) Days() int {
	return int(b.EndDate.Sub(b.StartDate).Hours() / 24)
}
