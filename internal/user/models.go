// Package user holds the user account aggregate and its append-only audit
// log entry. All invariant-enforcing mutation goes through the aggregate's
// methods; none of them perform I/O. A mutation and its paired log entry must
// be committed through one unit of work (see store.go).
package user

import (
	"encoding/json"
	"time"

	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// UserAccount is the aggregate root for one user identity.
//
// State machine: Active (DeactivatedAt zero) <-> Inactive (DeactivatedAt
// set). Accounts are never destroyed; deletion is a status flag plus a
// deleted audit stamp. Email uniqueness across all accounts is enforced by
// the storage layer's unique constraint on the normalized value; the
// aggregate only guarantees local validity.
//
// Fields are exported for the storage layer; application code constructs
// accounts through NewUserAccount and mutates them through the methods
// below, never by assignment.
type UserAccount struct {
	ID            domain.UserID
	FirstName     domain.PersonName
	LastName      domain.PersonName
	Email         domain.EmailAddress
	PendingEmail  domain.EmailAddress // staged, unconfirmed email; zero when none
	PreviousEmail domain.EmailAddress // archived on confirm for account recovery
	DeactivatedAt time.Time           // zero while active
	LastLoginAt   time.Time           // zero until first login
	Audit         domain.AuditStamp
}

// NewUserAccount validates and normalizes the three identity fields and
// stamps creation audit. The account starts Active with modified metadata
// equal to creation metadata.
func NewUserAccount(firstName, lastName, email string, createdBy domain.AuditPrincipal) (*UserAccount, error) {
	first, err := domain.ParsePersonName(firstName)
	if err != nil {
		return nil, err
	}
	last, err := domain.ParsePersonName(lastName)
	if err != nil {
		return nil, err
	}
	addr, err := domain.ParseEmailAddress(email)
	if err != nil {
		return nil, err
	}

	return &UserAccount{
		ID:        domain.NewUserID(),
		FirstName: first,
		LastName:  last,
		Email:     addr,
		Audit:     domain.NewAuditStamp(createdBy, time.Now()),
	}, nil
}

// IsActive reports whether the account has not been deactivated.
func (u *UserAccount) IsActive() bool { return u.DeactivatedAt.IsZero() }

// FullName returns "First Last".
func (u *UserAccount) FullName() string {
	return u.FirstName.String() + " " + u.LastName.String()
}

// InvertedName returns "Last, First" for directory-style listings.
func (u *UserAccount) InvertedName() string {
	return u.LastName.String() + ", " + u.FirstName.String()
}

// UpdateName revalidates and replaces both names, stamping modification
// audit. Identical values are a no-op: no mutation, no audit stamp, changed
// is false. Repeated identical updates must not pollute the audit trail.
func (u *UserAccount) UpdateName(firstName, lastName string, by domain.AuditPrincipal) (changed bool, err error) {
	first, err := domain.ParsePersonName(firstName)
	if err != nil {
		return false, err
	}
	last, err := domain.ParsePersonName(lastName)
	if err != nil {
		return false, err
	}

	if u.FirstName == first && u.LastName == last {
		return false, nil
	}

	u.FirstName = first
	u.LastName = last
	u.Audit.StampModified(by, time.Now())
	return true, nil
}

// Deactivate moves the account to Inactive. Calling while already inactive
// is a no-op: changed is false and the caller must treat "no history entry
// produced" as success-without-effect, not an error.
func (u *UserAccount) Deactivate(by domain.AuditPrincipal) (changed bool) {
	if !u.IsActive() {
		return false
	}
	now := time.Now().UTC()
	u.DeactivatedAt = now
	u.Audit.StampModified(by, now)
	return true
}

// Reactivate moves the account back to Active. A no-op while already active.
func (u *UserAccount) Reactivate(by domain.AuditPrincipal) (changed bool) {
	if u.IsActive() {
		return false
	}
	u.DeactivatedAt = time.Time{}
	u.Audit.StampModified(by, time.Now())
	return true
}

// InitiateEmailChange validates and stages a new email without touching the
// current one. A no-op when the address equals the current or the
// already-pending email, preventing duplicate pending states and redundant
// audit writes.
func (u *UserAccount) InitiateEmailChange(newEmail string, by domain.AuditPrincipal) (changed bool, err error) {
	addr, err := domain.ParseEmailAddress(newEmail)
	if err != nil {
		return false, err
	}

	if u.Email == addr || u.PendingEmail == addr {
		return false, nil
	}

	u.PendingEmail = addr
	u.Audit.StampModified(by, time.Now())
	return true, nil
}

// ConfirmEmailChange promotes the pending email, archiving the current one
// into PreviousEmail for recovery.
//
// Errors: CodeInvalidState when no email change is pending.
func (u *UserAccount) ConfirmEmailChange(by domain.AuditPrincipal) error {
	if u.PendingEmail.IsZero() {
		return dErrors.New(dErrors.CodeInvalidState, "no pending email change exists for this account")
	}

	u.PreviousEmail = u.Email
	u.Email = u.PendingEmail
	u.PendingEmail = domain.EmailAddress{}
	u.Audit.StampModified(by, time.Now())
	return nil
}

// SoftDelete marks the account logically deleted: deactivated plus a deleted
// audit stamp, same instant for both. The row is never removed. A no-op when
// already deleted.
func (u *UserAccount) SoftDelete(by domain.AuditPrincipal) (changed bool) {
	if u.Audit.IsDeleted() {
		return false
	}
	now := time.Now().UTC()
	if u.DeactivatedAt.IsZero() {
		u.DeactivatedAt = now
	}
	u.Audit.StampDeleted(by, now)
	return true
}

// RecordLogin stamps the last-login instant. Login events are tracked on the
// aggregate but are not part of the audit metadata.
func (u *UserAccount) RecordLogin(at time.Time) {
	u.LastLoginAt = at.UTC()
}

// snapshot is the serialized shape written into log entries' old/new value
// columns. Only identity-relevant fields; audit metadata is excluded so
// snapshots stay small and diffable.
type snapshot struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	PendingEmail  string `json:"pendingEmail,omitempty"`
	DeactivatedAt string `json:"deactivatedAt,omitempty"`
}

// Snapshot serializes the account's current identity state for audit log
// old/new value capture.
func (u *UserAccount) Snapshot() string {
	s := snapshot{
		FirstName:    u.FirstName.String(),
		LastName:     u.LastName.String(),
		Email:        u.Email.String(),
		PendingEmail: u.PendingEmail.String(),
	}
	if !u.DeactivatedAt.IsZero() {
		s.DeactivatedAt = u.DeactivatedAt.UTC().Format(time.RFC3339Nano)
	}
	b, _ := json.Marshal(s)
	return string(b)
}
