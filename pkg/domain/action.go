package domain

import (
	"regexp"
	"strings"

	dErrors "custodia/pkg/domain-errors"
)

// AuditActionMaxLength matches the storage column width.
const AuditActionMaxLength = 256

// actionPattern enforces the hierarchical signature: 2 or 3 alphanumeric
// segments joined by single dots ("Category.Operation" or
// "Category.SubCategory.Operation").
var actionPattern = regexp.MustCompile(`^[a-zA-Z0-9]+(\.[a-zA-Z0-9]+){1,2}$`)

// AuditAction is the validated, machine-readable name of a business event.
// The dot hierarchy enables prefix filtering ("UserAccount.*") in log
// queries. Application code composes actions only from the vocabulary
// constants below, never from free text.
type AuditAction struct {
	value string
}

// ComposeAction joins vocabulary segments into a validated action.
//
// Errors: CodeInvalidInput when fewer than two segments are given, any
// segment breaks the alphanumeric dot-notation, or the composed value
// exceeds AuditActionMaxLength.
func ComposeAction(segments ...string) (AuditAction, error) {
	if len(segments) < 2 {
		return AuditAction{}, dErrors.NewField(dErrors.CodeInvalidInput, "action", "requires at least a category and an operation")
	}
	trimmed := make([]string, len(segments))
	for i, s := range segments {
		trimmed[i] = strings.TrimSpace(s)
	}
	composed := strings.Join(trimmed, ".")
	if !actionPattern.MatchString(composed) {
		return AuditAction{}, dErrors.NewField(dErrors.CodeInvalidInput, "action", "must be 2-3 alphanumeric dot-separated segments")
	}
	if len(composed) > AuditActionMaxLength {
		return AuditAction{}, dErrors.NewField(dErrors.CodeInvalidInput, "action", "exceeds maximum length")
	}
	return AuditAction{value: composed}, nil
}

// MustComposeAction is ComposeAction for vocabulary-constant call sites where
// a failure is a programming error.
func MustComposeAction(segments ...string) AuditAction {
	a, err := ComposeAction(segments...)
	if err != nil {
		panic(err)
	}
	return a
}

// ReconstructAction materializes an action loaded from storage. The pattern
// is re-checked so free text cannot re-enter through a corrupted column.
func ReconstructAction(stored string) (AuditAction, error) {
	if !actionPattern.MatchString(stored) {
		return AuditAction{}, dErrors.NewField(dErrors.CodeInvalidInput, "action", "malformed stored action")
	}
	return AuditAction{value: stored}, nil
}

// InCategory reports whether the action belongs to the given top-level
// category, the "Category.*" filter.
func (a AuditAction) InCategory(category string) bool {
	return strings.HasPrefix(a.value, category+".")
}

func (a AuditAction) IsZero() bool { return a.value == "" }

func (a AuditAction) String() string { return a.value }

// Controlled vocabulary. Every audit action in the system is composed from
// these segments; adding a new business event means adding its segment here
// first.
const (
	ActionCategoryUserAccount = "UserAccount"
	ActionCategoryAccount     = "Account"
	ActionCategorySecurity    = "Security"
	ActionCategoryProfile     = "Profile"

	ActionSubCategoryRegistration = "Registration"
	ActionSubCategoryEmail        = "Email"
	ActionSubCategoryStatus       = "Status"

	ActionOperationCreate = "Create"
	ActionOperationUpdate = "Update"
	ActionOperationDelete = "Delete"
	ActionOperationLock   = "Lock"
	ActionOperationUnlock = "Unlock"
	ActionOperationChange = "Change"
)
