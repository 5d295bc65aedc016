package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmarroquin/kitloop-backend/pkg/enums"
)

// CreateInput captures a customer's booking request.
type CreateInput struct {
	CustomerID     uuid.UUID
	UnitID         uuid.UUID
	StartDate      time.Time
	EndDate        time.Time
	DeliveryMethod enums.DeliveryMethod
}

// ExtendInput moves a booking's end date forward.
type ExtendInput struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	NewEndDate time.Time
}

// CancelInput cancels a booking before it starts.
type CancelInput struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	Reason     string
}

// ReturnInput records the physical return of the unit.
type ReturnInput struct {
	BookingID  uuid.UUID
	CustomerID uuid.UUID
	ReturnedAt time.Time
}

// ListFilters describe the inputs supported by the customer booking list.
type ListFilters struct {
	Status   *enums.BookingStatus
	DateFrom *time.Time
	DateTo   *time.Time
}

// BookingSummary exposes the fields returned in the booking list.
type BookingSummary struct {
	BookingID      uuid.UUID            `json:"booking_id"`
	UnitID         uuid.UUID            `json:"unit_id"`
	UnitName       string               `json:"unit_name,omitempty"`
	StartDate      string               `json:"start_date"`
	EndDate        string               `json:"end_date"`
	Status         enums.BookingStatus  `json:"status"`
	TotalPrice     decimal.Decimal      `json:"total_price"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	CreatedAt      time.Time            `json:"created_at"`
}

// BookingList wraps the paginated bookings plus the next page cursor.
type BookingList struct {
	Bookings   []BookingSummary `json:"bookings"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// Detail is the full booking view including payment and penalty state.
type Detail struct {
	BookingID      uuid.UUID            `json:"booking_id"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	UnitID         uuid.UUID            `json:"unit_id"`
	StartDate      string               `json:"start_date"`
	EndDate        string               `json:"end_date"`
	Status         enums.BookingStatus  `json:"status"`
	TotalPrice     decimal.Decimal      `json:"total_price"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	ConfirmedAt    *time.Time           `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time           `json:"cancelled_at,omitempty"`
	ReturnedAt     *time.Time           `json:"returned_at,omitempty"`
	PaymentStatus  *string              `json:"payment_status,omitempty"`
	Fines          []FineSummary        `json:"fines,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

// FineSummary is the penalty assessed against a booking at return time.
type FineSummary struct {
	FineID       uuid.UUID        `json:"fine_id"`
	Type         enums.FineType   `json:"type"`
	Amount       decimal.Decimal  `json:"amount"`
	Status       enums.FineStatus `json:"status"`
	OverdueHours *int             `json:"overdue_hours,omitempty"`
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"
