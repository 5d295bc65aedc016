package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// Fine is a penalty attached to a booking: computed for late returns,
// reviewer-assigned for damage reports.
type Fine struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID    uuid.UUID        `gorm:"column:booking_id;type:uuid;not null;index"`
	Type         enums.FineType   `gorm:"column:type;type:fine_type;not null"`
	Amount       decimal.Decimal  `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason       string           `gorm:"column:reason;not null"`
	Status       enums.FineStatus `gorm:"column:status;type:fine_status;not null;default:'pending'"`
	EvidenceRefs pq.StringArray   `gorm:"column:evidence_refs;type:text[]"`
	ReportedBy   *uuid.UUID       `gorm:"column:reported_by;type:uuid"`
	OverdueHours *int             `gorm:"column:overdue_hours"`
	Dispute      *Dispute         `gorm:"foreignKey:FineID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
