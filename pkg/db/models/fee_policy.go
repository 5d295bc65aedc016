package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeePolicy carries the per-unit penalty parameters. It is loaded explicitly
// and passed into the penalty engine, never read as ambient state.
type FeePolicy struct {
	UnitID         uuid.UUID       `gorm:"column:unit_id;type:uuid;primaryKey"`
	GraceMinutes   int             `gorm:"column:grace_minutes;not null;default:30"`
	LateFeePerHour decimal.Decimal `gorm:"column:late_fee_per_hour;type:numeric(12,2);not null"`
	Deposit        decimal.Decimal `gorm:"column:deposit;type:numeric(12,2);not null;default:0"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
