package domain

import (
	"strings"

	dErrors "custodia/pkg/domain-errors"
)

// EmailAddressMaxLength matches the storage column width.
const EmailAddressMaxLength = 256

// EmailAddress is a validated, normalized email. Two raw inputs differing
// only in case or surrounding whitespace produce equal values.
type EmailAddress struct {
	value string
}

// ParseEmailAddress constructs an EmailAddress from external input,
// trimming and lower-casing before validation.
//
// Errors: CodeInvalidInput when the value is empty, lacks "@", or exceeds
// EmailAddressMaxLength.
func ParseEmailAddress(raw string) (EmailAddress, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return EmailAddress{}, dErrors.NewField(dErrors.CodeInvalidInput, "email", "cannot be empty")
	}
	if !strings.Contains(normalized, "@") {
		return EmailAddress{}, dErrors.NewField(dErrors.CodeInvalidInput, "email", "must contain @")
	}
	if len(normalized) > EmailAddressMaxLength {
		return EmailAddress{}, dErrors.NewField(dErrors.CodeInvalidInput, "email", "exceeds maximum length")
	}
	return EmailAddress{value: normalized}, nil
}

// ReconstructEmailAddress materializes an already-normalized value loaded
// from storage. Never call from application code.
func ReconstructEmailAddress(stored string) EmailAddress {
	return EmailAddress{value: stored}
}

// IsZero reports whether no email is set. Used for the nullable
// pending/previous email slots on the aggregate.
func (e EmailAddress) IsZero() bool { return e.value == "" }

func (e EmailAddress) String() string { return e.value }
