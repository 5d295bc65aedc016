package penalties

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DamageFineInput is a reviewer-assigned damage penalty.
type DamageFineInput struct {
	BookingID    uuid.UUID
	Amount       decimal.Decimal
	Reason       string
	EvidenceRefs []string
	ReportedBy   uuid.UUID
}

// RaiseDisputeInput is a customer challenge against a fine.
type RaiseDisputeInput struct {
	FineID     uuid.UUID
	CustomerID uuid.UUID
	Reason     string
}

// ResolveDisputeInput closes a dispute one way or the other. A resolved
// outcome may carry an adjusted amount; zero waives the fine entirely.
type ResolveDisputeInput struct {
	DisputeID      uuid.UUID
	ReviewerID     uuid.UUID
	Outcome        string
	Notes          string
	AdjustedAmount *decimal.Decimal
}
