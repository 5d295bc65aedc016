package enums

import "fmt"

// PaymentIntentStatus tracks verification progress for a payment intent.
type PaymentIntentStatus string

const (
	PaymentIntentStatusCreated  PaymentIntentStatus = "created"
	PaymentIntentStatusVerified PaymentIntentStatus = "verified"
	PaymentIntentStatusFailed   PaymentIntentStatus = "failed"
)

var validPaymentIntentStatuses = []PaymentIntentStatus{
	PaymentIntentStatusCreated,
	PaymentIntentStatusVerified,
	PaymentIntentStatusFailed,
}

// IsValid reports whether the value matches the canonical payment intent status enum.
func (p PaymentIntentStatus) IsValid() bool {
	for _, candidate := range validPaymentIntentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentIntentStatus converts the raw string to PaymentIntentStatus.
func ParsePaymentIntentStatus(value string) (PaymentIntentStatus, error) {
	for _, candidate := range validPaymentIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment intent status %q", value)
}
