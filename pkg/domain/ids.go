// Package domain holds the validated value objects and typed identifiers the
// rest of the service is built on.
//
// Invariant: values of these types are always valid. Construct them through
// the factory/parse functions at trust boundaries; the Reconstruct* functions
// exist solely for materializing already-valid values from storage and must
// not be reached from application code.
package domain

import (
	"github.com/google/uuid"

	dErrors "custodia/pkg/domain-errors"
)

// UserID identifies a user account. Generated as UUIDv7 so identifiers are
// time-ordered and index-friendly.
type UserID uuid.UUID

// LogID identifies an audit log entry.
type LogID uuid.UUID

// NewUserID generates a new time-ordered user identifier.
func NewUserID() UserID {
	return UserID(uuid.Must(uuid.NewV7()))
}

// NewLogID generates a new time-ordered log entry identifier.
func NewLogID() LogID {
	return LogID(uuid.Must(uuid.NewV7()))
}

// ParseUserID constructs a UserID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil
// UUID; no other errors are expected.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user_id", s)
	return UserID(u), err
}

// ParseLogID constructs a LogID from external input.
func ParseLogID(s string) (LogID, error) {
	u, err := parseUUID("log_id", s)
	return LogID(u), err
}

func parseUUID(field, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.NewField(dErrors.CodeInvalidInput, field, "cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.NewField(dErrors.CodeInvalidInput, field, "must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.NewField(dErrors.CodeInvalidInput, field, "cannot be the nil UUID")
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id LogID) String() string { return uuid.UUID(id).String() }
func (id LogID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
