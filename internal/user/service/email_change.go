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

// ConfirmEmailChange redeems a confirmation token and promotes the staged
// email it points at. The retired address is archived on the aggregate and
// both addresses land in the confirmation log entry.
//
// Promotion can still lose a uniqueness race: another account may have
// registered the staged address while confirmation was pending. The commit
// translation turns that rejection into a duplicate error and the pending
// state stays intact for a retry with a different address.
func (s *Service) ConfirmEmailChange(ctx context.Context, token string) (err error) {
	defer func() { s.observe("user.email.confirm", err) }()

	if token == "" {
		return dErrors.NewField(dErrors.CodeInvalidInput, "token", "confirmation token required")
	}

	ctx, span := s.tracer.Start(ctx, "user.email.confirm")
	defer span.End()

	accountID, err := s.tokens.Redeem(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "confirmation token is unknown or expired")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem confirmation token")
	}

	uow, err := s.uowFactory.Begin(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to open unit of work")
	}
	defer uow.Rollback()

	account, err := loadAccount(ctx, uow, accountID)
	if err != nil {
		return err
	}

	// The account owns the pending address; the token holder proves control
	// of it.
	by, err := domain.PrincipalFromUser(account.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to derive principal")
	}

	previous := account.Email
	if err := account.ConfirmEmailChange(by); err != nil {
		return err
	}

	if err := uow.Accounts().Update(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeDuplicate, "email address already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage account update")
	}
	if err := uow.Logs().Add(ctx, user.NewEmailChangeConfirmedLog(account.ID, by, previous, account.Email)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage confirmation log")
	}
	if err := commit(ctx, uow); err != nil {
		return err
	}

	s.logger.Info("email change confirmed",
		zap.String("user_id", account.ID.String()),
	)
	return nil
}
