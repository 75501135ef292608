package domain

import (
	"strings"

	dErrors "custodia/pkg/domain-errors"
)

// AuditPrincipalMaxLength matches the storage column width for the composed
// signature.
const AuditPrincipalMaxLength = 256

// Actor kind prefixes. The composed signature is "<kind>:<identifier>".
const (
	actorKindUser   = "User"
	actorKindSystem = "System"
)

// AuditPrincipal is the validated identity (human user or automated system)
// responsible for an action. The two From* factories are the only
// construction paths in application code; blind string concatenation is
// rejected at the storage boundary too.
type AuditPrincipal struct {
	value string
}

// PrincipalFromUser builds a principal with the "User:<uuid>" signature.
//
// Errors: CodeInvalidInput when the identifier is the nil UUID.
func PrincipalFromUser(userID UserID) (AuditPrincipal, error) {
	if userID.IsNil() {
		return AuditPrincipal{}, dErrors.NewField(dErrors.CodeInvalidInput, "principal", "user identifier cannot be nil")
	}
	return AuditPrincipal{value: actorKindUser + ":" + userID.String()}, nil
}

// PrincipalFromSystem builds a principal with the "System:<name>" signature
// for automated services.
//
// Errors: CodeInvalidInput when the name is empty after trimming or the
// composed signature exceeds AuditPrincipalMaxLength.
func PrincipalFromSystem(serviceName string) (AuditPrincipal, error) {
	normalized := strings.TrimSpace(serviceName)
	if normalized == "" {
		return AuditPrincipal{}, dErrors.NewField(dErrors.CodeInvalidInput, "principal", "system name cannot be empty")
	}
	composed := actorKindSystem + ":" + normalized
	if len(composed) > AuditPrincipalMaxLength {
		return AuditPrincipal{}, dErrors.NewField(dErrors.CodeInvalidInput, "principal", "exceeds maximum length")
	}
	return AuditPrincipal{value: composed}, nil
}

// ReconstructPrincipal materializes a principal loaded from storage. The
// shape is re-checked so a corrupted column cannot smuggle a free-text value
// back into the domain.
func ReconstructPrincipal(stored string) (AuditPrincipal, error) {
	kind, identifier, ok := strings.Cut(stored, ":")
	if !ok || identifier == "" || (kind != actorKindUser && kind != actorKindSystem) {
		return AuditPrincipal{}, dErrors.NewField(dErrors.CodeInvalidInput, "principal", "malformed stored signature")
	}
	return AuditPrincipal{value: stored}, nil
}

// IsUser reports whether the principal is a human user signature.
func (p AuditPrincipal) IsUser() bool {
	return strings.HasPrefix(p.value, actorKindUser+":")
}

// IsSystem reports whether the principal is an automated system signature.
func (p AuditPrincipal) IsSystem() bool {
	return strings.HasPrefix(p.value, actorKindSystem+":")
}

func (p AuditPrincipal) IsZero() bool { return p.value == "" }

func (p AuditPrincipal) String() string { return p.value }
