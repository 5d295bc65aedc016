package enums

import "fmt"

// DisputeStatus is the review state of a dispute. The resolved and rejected
// states are terminal.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusInReview DisputeStatus = "in_review"
	DisputeStatusResolved DisputeStatus = "resolved"
	DisputeStatusRejected DisputeStatus = "rejected"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusOpen,
	DisputeStatusInReview,
	DisputeStatusResolved,
	DisputeStatusRejected,
}

// IsValid reports whether the value matches the canonical dispute status enum.
func (d DisputeStatus) IsValid() bool {
	for _, candidate := range validDisputeStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a dispute in this state is immutable.
func (d DisputeStatus) IsTerminal() bool {
	return d == DisputeStatusResolved || d == DisputeStatusRejected
}

// ParseDisputeStatus converts the raw string to DisputeStatus.
func ParseDisputeStatus(value string) (DisputeStatus, error) {
	for _, candidate := range validDisputeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute status %q", value)
}

// DisputeOutcome is the reviewer decision applied to an open dispute.
type DisputeOutcome string

const (
	DisputeOutcomeResolved DisputeOutcome = "resolved"
	DisputeOutcomeRejected DisputeOutcome = "rejected"
)

var validDisputeOutcomes = []DisputeOutcome{
	DisputeOutcomeResolved,
	DisputeOutcomeRejected,
}

// IsValid reports whether the value matches the canonical dispute outcome enum.
func (d DisputeOutcome) IsValid() bool {
	for _, candidate := range validDisputeOutcomes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDisputeOutcome converts the raw string to DisputeOutcome.
func ParseDisputeOutcome(value string) (DisputeOutcome, error) {
	for _, candidate := range validDisputeOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dispute outcome %q", value)
}
