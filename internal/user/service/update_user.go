package service

import (
	"context"

	"go.uber.org/zap"

	"custodia/internal/user"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// UpdateUserCommand changes an account's names and/or stages a new email.
// Nil-equivalent fields (empty strings) are left untouched.
type UpdateUserCommand struct {
	UserID    domain.UserID
	FirstName string
	LastName  string
	Email     string
	By        domain.AuditPrincipal
}

// UpdateUserResult reports which changes actually happened. A command where
// every field matched the current state commits nothing and is a success.
type UpdateUserResult struct {
	NameChanged        bool
	EmailChangeStarted bool
	ConfirmationToken  string
}

// UpdateUser applies a partial update. A name change and an email change
// requested together commit atomically with their log entries. Idempotent
// no-ops produce no mutation and no audit entry.
func (s *Service) UpdateUser(ctx context.Context, cmd UpdateUserCommand) (res UpdateUserResult, err error) {
	defer func() { s.observe("user.update", err) }()

	ctx, span, uow, err := s.begin(ctx, "user.update")
	if err != nil {
		return UpdateUserResult{}, err
	}
	defer span.End()
	defer uow.Rollback()

	account, err := loadAccount(ctx, uow, cmd.UserID)
	if err != nil {
		return UpdateUserResult{}, err
	}

	if cmd.FirstName != "" || cmd.LastName != "" {
		// A partial name leaves the other half as it is.
		first, last := cmd.FirstName, cmd.LastName
		if first == "" {
			first = account.FirstName.String()
		}
		if last == "" {
			last = account.LastName.String()
		}
		before := account.Snapshot()
		changed, err := account.UpdateName(first, last, cmd.By)
		if err != nil {
			return UpdateUserResult{}, err
		}
		if changed {
			res.NameChanged = true
			if err := uow.Logs().Add(ctx, user.NewUpdateLog(account.ID, cmd.By, before, account.Snapshot())); err != nil {
				return UpdateUserResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage update log")
			}
		}
	}

	if cmd.Email != "" {
		changed, err := account.InitiateEmailChange(cmd.Email, cmd.By)
		if err != nil {
			return UpdateUserResult{}, err
		}
		if changed {
			res.EmailChangeStarted = true
			if err := uow.Logs().Add(ctx, user.NewEmailChangeStartedLog(account.ID, cmd.By, account.PendingEmail)); err != nil {
				return UpdateUserResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage email change log")
			}
		}
	}

	if !res.NameChanged && !res.EmailChangeStarted {
		return res, nil
	}

	if err := uow.Accounts().Update(ctx, account); err != nil {
		return UpdateUserResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage account update")
	}
	if err := commit(ctx, uow); err != nil {
		return UpdateUserResult{}, err
	}

	if res.EmailChangeStarted {
		token, err := s.tokens.Issue(ctx, account.ID, s.tokenTTL)
		if err != nil {
			// The staged change is already durable; confirmation can be
			// re-requested.
			s.logger.Error("failed to issue confirmation token",
				zap.String("user_id", account.ID.String()), zap.Error(err))
		} else {
			res.ConfirmationToken = token
		}
	}

	s.logger.Info("user account updated",
		zap.String("user_id", account.ID.String()),
		zap.Bool("name_changed", res.NameChanged),
		zap.Bool("email_change_started", res.EmailChangeStarted),
	)
	return res, nil
}
