package service

import (
	"context"

	"go.uber.org/zap"

	"custodia/internal/user"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// DeactivateUser moves an account to the inactive state. Deactivating an
// already-inactive account is success-without-effect: no mutation, no audit
// entry, no error.
func (s *Service) DeactivateUser(ctx context.Context, accountID domain.UserID, by domain.AuditPrincipal) (err error) {
	defer func() { s.observe("user.deactivate", err) }()
	return s.transition(ctx, "user.deactivate", accountID,
		func(account *user.UserAccount) (bool, *user.AccountLog) {
			if !account.Deactivate(by) {
				return false, nil
			}
			return true, user.NewDeactivationLog(account.ID, by)
		})
}

// ReactivateUser moves an account back to the active state. A no-op while
// already active.
func (s *Service) ReactivateUser(ctx context.Context, accountID domain.UserID, by domain.AuditPrincipal) (err error) {
	defer func() { s.observe("user.reactivate", err) }()
	return s.transition(ctx, "user.reactivate", accountID,
		func(account *user.UserAccount) (bool, *user.AccountLog) {
			if !account.Reactivate(by) {
				return false, nil
			}
			return true, user.NewReactivationLog(account.ID, by)
		})
}

// DeleteUser soft-deletes an account: the row stays for audit integrity, the
// account reads as inactive and deleted from then on. Already-deleted
// accounts are a no-op.
func (s *Service) DeleteUser(ctx context.Context, accountID domain.UserID, by domain.AuditPrincipal) (err error) {
	defer func() { s.observe("user.delete", err) }()
	return s.transition(ctx, "user.delete", accountID,
		func(account *user.UserAccount) (bool, *user.AccountLog) {
			if !account.SoftDelete(by) {
				return false, nil
			}
			return true, user.NewDeletionLog(account.ID, by)
		})
}

// transition runs one status mutation: load, mutate, and, when the mutation
// actually changed state, commit the aggregate with its paired log entry.
func (s *Service) transition(ctx context.Context, command string, accountID domain.UserID, mutate func(*user.UserAccount) (bool, *user.AccountLog)) error {
	ctx, span, uow, err := s.begin(ctx, command)
	if err != nil {
		return err
	}
	defer span.End()
	defer uow.Rollback()

	account, err := loadAccount(ctx, uow, accountID)
	if err != nil {
		return err
	}

	changed, entry := mutate(account)
	if !changed {
		return nil
	}

	if err := uow.Accounts().Update(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage account update")
	}
	if err := uow.Logs().Add(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage status log")
	}
	if err := commit(ctx, uow); err != nil {
		return err
	}

	s.logger.Info("user account status changed",
		zap.String("command", command),
		zap.String("user_id", accountID.String()),
	)
	return nil
}
