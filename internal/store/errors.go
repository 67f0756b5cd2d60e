package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ConflictError reports a violated uniqueness invariant and names the field
// that caused it.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already registered", e.Field)
}

const pqUniqueViolation = "23505"

// Constraint names from the users migration.
const (
	constraintUsersEmail    = "users_email_key"
	constraintUsersUsername = "users_username_key"
)

// conflictFromPq maps a postgres unique_violation to a ConflictError naming
// the conflicting field. The database constraint is the real guarantee;
// application-level pre-checks only produce a friendlier message sooner.
// Returns nil when err is not a unique violation on a known constraint.
func conflictFromPq(err error) *ConflictError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return nil
	}
	switch pqErr.Constraint {
	case constraintUsersEmail:
		return &ConflictError{Field: "email"}
	case constraintUsersUsername:
		return &ConflictError{Field: "username"}
	}
	return nil
}
