package domain

import "time"

// AuditStamp is the audit metadata embedded in every mutable aggregate.
// Composition replaces the base-class hierarchy: aggregates embed the struct
// and the stamp functions below are the only mutation paths.
//
// Zero time / zero principal mean "not set". ModifiedAtUtc is set at
// construction (equal to CreatedAtUtc) and refreshed on every mutation.
// DeletedAtUtc, once set, marks the entity logically deleted; the row is
// never removed.
type AuditStamp struct {
	CreatedAtUtc  time.Time
	CreatedBy     AuditPrincipal
	ModifiedAtUtc time.Time
	ModifiedBy    AuditPrincipal
	DeletedAtUtc  time.Time
	DeletedBy     AuditPrincipal
}

// NewAuditStamp stamps creation metadata. Modification metadata starts equal
// to creation metadata.
func NewAuditStamp(createdBy AuditPrincipal, now time.Time) AuditStamp {
	now = now.UTC()
	return AuditStamp{
		CreatedAtUtc:  now,
		CreatedBy:     createdBy,
		ModifiedAtUtc: now,
		ModifiedBy:    createdBy,
	}
}

// StampModified records a mutation. Calling twice overwrites the timestamp;
// idempotence guards live at the aggregate-method layer.
func (s *AuditStamp) StampModified(by AuditPrincipal, now time.Time) {
	s.ModifiedAtUtc = now.UTC()
	s.ModifiedBy = by
}

// StampDeleted records a soft delete. The same instant refreshes the
// modification metadata so modified never lags deleted.
func (s *AuditStamp) StampDeleted(by AuditPrincipal, now time.Time) {
	now = now.UTC()
	s.DeletedAtUtc = now
	s.DeletedBy = by
	s.StampModified(by, now)
}

// IsDeleted reports whether the entity is logically deleted.
func (s AuditStamp) IsDeleted() bool { return !s.DeletedAtUtc.IsZero() }
