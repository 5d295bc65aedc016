package db

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// Postgres class 23 integrity violation for duplicate keys.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally narrowed to a single named constraint. Drivers that do not
// surface *pq.Error (the sqlite test harness among them) fall back to
// message matching.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != uniqueViolationCode {
			return false
		}
		return constraint == "" || pqErr.Constraint == constraint
	}
	msg := err.Error()
	if constraint != "" {
		return strings.Contains(msg, constraint)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
