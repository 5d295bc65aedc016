package enums

import "fmt"

// FineType distinguishes computed late fees from reviewer-assigned damage fines.
type FineType string

const (
	FineTypeLate   FineType = "late"
	FineTypeDamage FineType = "damage"
)

var validFineTypes = []FineType{FineTypeLate, FineTypeDamage}

// IsValid reports whether the value matches the canonical fine type enum.
func (f FineType) IsValid() bool {
	for _, candidate := range validFineTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFineType converts the raw string to FineType.
func ParseFineType(value string) (FineType, error) {
	for _, candidate := range validFineTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fine type %q", value)
}

// FineStatus is the settlement state of a fine.
type FineStatus string

const (
	FineStatusPending  FineStatus = "pending"
	FineStatusDisputed FineStatus = "disputed"
	FineStatusPaid     FineStatus = "paid"
	FineStatusResolved FineStatus = "resolved"
)

var validFineStatuses = []FineStatus{
	FineStatusPending,
	FineStatusDisputed,
	FineStatusPaid,
	FineStatusResolved,
}

// IsValid reports whether the value matches the canonical fine status enum.
func (f FineStatus) IsValid() bool {
	for _, candidate := range validFineStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFineStatus converts the raw string to FineStatus.
func ParseFineStatus(value string) (FineStatus, error) {
	for _, candidate := range validFineStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fine status %q", value)
}
