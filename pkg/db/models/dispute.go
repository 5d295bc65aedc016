package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// Dispute is a customer challenge against a fine. At most one open dispute
// may exist per fine; terminal disputes are immutable.
type Dispute struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FineID          uuid.UUID           `gorm:"column:fine_id;type:uuid;not null;index"`
	BookingID       uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index"`
	RaisedBy        uuid.UUID           `gorm:"column:raised_by;type:uuid;not null"`
	Reason          string              `gorm:"column:reason;not null"`
	Status          enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null;default:'open'"`
	ResolutionNotes *string             `gorm:"column:resolution_notes"`
	ResolvedBy      *uuid.UUID          `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt      *time.Time          `gorm:"column:resolved_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
