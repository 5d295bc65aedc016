package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// OutboxDLQ holds events that exhausted their publish attempts. Rows are
// replayed manually after the downstream fault is fixed.
type OutboxDLQ struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID                 `gorm:"column:event_id;type:uuid;not null;unique"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:event_type_enum;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:aggregate_type_enum;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	FailureReason string                    `gorm:"column:failure_reason;not null"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null"`
	FailedAt      time.Time                 `gorm:"column:failed_at;autoCreateTime"`
}
