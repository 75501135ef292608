package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"custodia/internal/user"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
)

// CreateUserCommand registers a new user account.
type CreateUserCommand struct {
	FirstName string
	LastName  string
	Email     string
	By        domain.AuditPrincipal
}

// CreateUser validates the identity fields, rejects an already-registered
// email, and commits the new aggregate together with its registration log
// entry.
//
// The existence check here is a courtesy fast path. Two concurrent requests
// for the same email can both pass it; the storage unique constraint decides
// the race and commit translates that rejection into the same duplicate
// error.
func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCommand) (id domain.UserID, err error) {
	defer func() { s.observe("user.create", err) }()

	ctx, span, uow, err := s.begin(ctx, "user.create")
	if err != nil {
		return domain.UserID{}, err
	}
	defer span.End()
	defer uow.Rollback()

	account, err := user.NewUserAccount(cmd.FirstName, cmd.LastName, cmd.Email, cmd.By)
	if err != nil {
		return domain.UserID{}, err
	}

	exists, err := uow.Accounts().ExistsByEmail(ctx, account.Email)
	if err != nil {
		return domain.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email existence")
	}
	if exists {
		return domain.UserID{}, dErrors.New(dErrors.CodeDuplicate, "email address already registered")
	}

	if err := uow.Accounts().Add(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return domain.UserID{}, dErrors.New(dErrors.CodeDuplicate, "email address already registered")
		}
		return domain.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage user account")
	}
	if err := uow.Logs().Add(ctx, user.NewRegistrationLog(account.ID, cmd.By)); err != nil {
		return domain.UserID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage registration log")
	}
	if err := commit(ctx, uow); err != nil {
		return domain.UserID{}, err
	}

	s.logger.Info("user account created",
		zap.String("user_id", account.ID.String()),
		zap.String("created_by", cmd.By.String()),
	)
	return account.ID, nil
}
