package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// CreateIntentInput starts a payment for a pending booking.
type CreateIntentInput struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
}

// VerifyInput is the gateway's payment-completion callback. Amount must
// match the intent exactly; BookingID, when present, must match the booking
// the order was minted for.
type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Amount           decimal.Decimal
	BookingID        uuid.UUID
}

// FailInput records a gateway-side payment failure.
type FailInput struct {
	GatewayOrderID string
	Reason         string
}

// IntentView is the payment intent shape returned to clients. The HMAC
// secret and raw signatures never leave the service.
type IntentView struct {
	IntentID       uuid.UUID                 `json:"intent_id"`
	BookingID      uuid.UUID                 `json:"booking_id"`
	Amount         decimal.Decimal           `json:"amount"`
	GatewayOrderID string                    `json:"gateway_order_id"`
	Status         enums.PaymentIntentStatus `json:"status"`
	VerifiedAt     *time.Time                `json:"verified_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}
