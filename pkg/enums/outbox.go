package enums

import "fmt"

// OutboxEventType names the notification events handed to the dispatcher.
type OutboxEventType string

const (
	EventBookingConfirmed OutboxEventType = "booking.confirmed"
	EventBookingCancelled OutboxEventType = "booking.cancelled"
	EventBookingCompleted OutboxEventType = "booking.completed"
	EventFineCreated      OutboxEventType = "fine.created"
	EventDisputeRaised    OutboxEventType = "dispute.raised"
	EventDisputeResolved  OutboxEventType = "dispute.resolved"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingConfirmed,
	EventBookingCancelled,
	EventBookingCompleted,
	EventFineCreated,
	EventDisputeRaised,
	EventDisputeResolved,
}

// IsValid reports whether the value matches the canonical outbox event type enum.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts the raw string to OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking OutboxAggregateType = "booking"
	AggregateFine    OutboxAggregateType = "fine"
	AggregateDispute OutboxAggregateType = "dispute"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	AggregateBooking,
	AggregateFine,
	AggregateDispute,
}

// IsValid reports whether the value matches the canonical outbox aggregate type enum.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
