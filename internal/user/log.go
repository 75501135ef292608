package user

import (
	"time"

	"custodia/pkg/domain"
)

// Log entry actions, composed once from the controlled vocabulary. These
// variables and the factory functions below are the only places an action is
// bound to a log entry.
var (
	actionRegistration         = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionSubCategoryRegistration, domain.ActionOperationCreate)
	actionAccountUpdate        = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionOperationUpdate)
	actionAccountDeactivate    = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionSubCategoryStatus, domain.ActionOperationLock)
	actionAccountReactivate    = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionSubCategoryStatus, domain.ActionOperationUnlock)
	actionEmailChangeInitiated = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionSubCategoryEmail, domain.ActionOperationUpdate)
	actionEmailChangeConfirmed = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionSubCategoryEmail, domain.ActionOperationChange)
	actionAccountDelete        = domain.MustComposeAction(domain.ActionCategoryUserAccount, domain.ActionOperationDelete)
)

// AccountLog is one append-only audit record describing an action taken
// against a user account. It references its account by identifier only; its
// lifetime is independent and it is never cascading-deleted.
//
// Immutable once created. Construction happens only through the named
// factories below, each bound to one business event, so every entry's action
// comes from the controlled vocabulary and PerformedAtUtc can never be
// backdated by a caller.
type AccountLog struct {
	ID             domain.LogID
	UserAccountID  domain.UserID
	Action         domain.AuditAction
	PerformedBy    domain.AuditPrincipal
	PerformedAtUtc time.Time
	OriginalValues string // serialized pre-state snapshot; "" when not captured
	NewValues      string // serialized post-state snapshot; "" when not captured
}

func newAccountLog(accountID domain.UserID, action domain.AuditAction, by domain.AuditPrincipal, oldValues, newValues string) *AccountLog {
	return &AccountLog{
		ID:             domain.NewLogID(),
		UserAccountID:  accountID,
		Action:         action,
		PerformedBy:    by,
		PerformedAtUtc: time.Now().UTC(),
		OriginalValues: oldValues,
		NewValues:      newValues,
	}
}

// NewRegistrationLog records a new user registration.
func NewRegistrationLog(accountID domain.UserID, by domain.AuditPrincipal) *AccountLog {
	return newAccountLog(accountID, actionRegistration, by, "", "")
}

// NewUpdateLog records a modification to an existing account, with optional
// pre/post state snapshots.
func NewUpdateLog(accountID domain.UserID, by domain.AuditPrincipal, oldValues, newValues string) *AccountLog {
	return newAccountLog(accountID, actionAccountUpdate, by, oldValues, newValues)
}

// NewDeactivationLog records an account moving to the inactive state.
func NewDeactivationLog(accountID domain.UserID, by domain.AuditPrincipal) *AccountLog {
	return newAccountLog(accountID, actionAccountDeactivate, by, "", "")
}

// NewReactivationLog records an account returning to the active state.
func NewReactivationLog(accountID domain.UserID, by domain.AuditPrincipal) *AccountLog {
	return newAccountLog(accountID, actionAccountReactivate, by, "", "")
}

// NewEmailChangeStartedLog records a new address being staged for
// confirmation. The staged address goes into the new-values snapshot.
func NewEmailChangeStartedLog(accountID domain.UserID, by domain.AuditPrincipal, pendingEmail domain.EmailAddress) *AccountLog {
	return newAccountLog(accountID, actionEmailChangeInitiated, by, "", pendingEmail.String())
}

// NewEmailChangeConfirmedLog records a staged address being promoted,
// capturing both the retired and the new address.
func NewEmailChangeConfirmedLog(accountID domain.UserID, by domain.AuditPrincipal, previous, current domain.EmailAddress) *AccountLog {
	return newAccountLog(accountID, actionEmailChangeConfirmed, by, previous.String(), current.String())
}

// NewDeletionLog records a soft delete.
func NewDeletionLog(accountID domain.UserID, by domain.AuditPrincipal) *AccountLog {
	return newAccountLog(accountID, actionAccountDelete, by, "", "")
}
