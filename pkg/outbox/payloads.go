package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event payload shapes consumed by the notification dispatcher. Fields are
// additive only; breaking changes bump the envelope version.

type BookingEventV1 struct {
	BookingID  uuid.UUID       `json:"bookingId"`
	CustomerID uuid.UUID       `json:"customerId"`
	UnitID     uuid.UUID       `json:"unitId"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Status     string          `json:"status"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

type FineEventV1 struct {
	FineID    uuid.UUID       `json:"fineId"`
	BookingID uuid.UUID       `json:"bookingId"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type DisputeEventV1 struct {
	DisputeID  uuid.UUID  `json:"disputeId"`
	FineID     uuid.UUID  `json:"fineId"`
	BookingID  uuid.UUID  `json:"bookingId"`
	Status     string     `json:"status"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}
