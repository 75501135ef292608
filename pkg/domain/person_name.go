package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	dErrors "custodia/pkg/domain-errors"
)

// PersonNameMaxLength matches the storage column width.
const PersonNameMaxLength = 64

var titleCaser = cases.Title(language.English)

// PersonName is a validated, trimmed, title-cased first or last name.
type PersonName struct {
	value string
}

// ParsePersonName constructs a PersonName from external input. The value is
// trimmed and title-cased so "mcclain" stores as "Mcclain" and "SMITH" as
// "Smith".
//
// Errors: CodeInvalidInput when the value is empty or exceeds
// PersonNameMaxLength.
func ParsePersonName(raw string) (PersonName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return PersonName{}, dErrors.NewField(dErrors.CodeInvalidInput, "name", "cannot be empty")
	}
	if len(trimmed) > PersonNameMaxLength {
		return PersonName{}, dErrors.NewField(dErrors.CodeInvalidInput, "name", "exceeds maximum length")
	}
	return PersonName{value: titleCaser.String(strings.ToLower(trimmed))}, nil
}

// ReconstructPersonName materializes an already-formatted value loaded from
// storage. Never call from application code.
func ReconstructPersonName(stored string) PersonName {
	return PersonName{value: stored}
}

func (n PersonName) IsZero() bool { return n.value == "" }

func (n PersonName) String() string { return n.value }
