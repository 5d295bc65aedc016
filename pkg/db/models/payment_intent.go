package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// PaymentIntent records one charge attempt against a pending booking. A
// successful verification mutates it exactly once; rows are immutable after.
type PaymentIntent struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID        uuid.UUID                 `gorm:"column:booking_id;type:uuid;not null;index"`
	Amount           decimal.Decimal           `gorm:"column:amount;type:numeric(12,2);not null"`
	GatewayOrderID   string                    `gorm:"column:gateway_order_id;not null;unique"`
	GatewayPaymentID *string                   `gorm:"column:gateway_payment_id"`
	Status           enums.PaymentIntentStatus `gorm:"column:status;type:payment_intent_status;not null;default:'created'"`
	VerifiedAt       *time.Time                `gorm:"column:verified_at"`
	FailureReason    *string                   `gorm:"column:failure_reason"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
