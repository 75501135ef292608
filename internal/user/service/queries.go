package service

import (
	"context"
	"time"

	"custodia/internal/user"
	"custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// GetUser returns one account by identifier.
func (s *Service) GetUser(ctx context.Context, accountID domain.UserID) (account *user.UserAccount, err error) {
	defer func() { s.observe("user.get", err) }()

	ctx, span, uow, err := s.begin(ctx, "user.get")
	if err != nil {
		return nil, err
	}
	defer span.End()
	defer uow.Rollback()

	return loadAccount(ctx, uow, accountID)
}

// ListUsers returns every account, soft-deleted included. Callers filter on
// the audit metadata when they need living accounts only.
func (s *Service) ListUsers(ctx context.Context) (accounts []*user.UserAccount, err error) {
	defer func() { s.observe("user.list", err) }()

	ctx, span, uow, err := s.begin(ctx, "user.list")
	if err != nil {
		return nil, err
	}
	defer span.End()
	defer uow.Rollback()

	accounts, err = uow.Accounts().GetAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list user accounts")
	}
	return accounts, nil
}

// ListUserLogs returns an account's audit trail in the order it was written.
// The account must exist; its log entries may legitimately be empty.
func (s *Service) ListUserLogs(ctx context.Context, accountID domain.UserID) (entries []*user.AccountLog, err error) {
	defer func() { s.observe("user.logs", err) }()

	ctx, span, uow, err := s.begin(ctx, "user.logs")
	if err != nil {
		return nil, err
	}
	defer span.End()
	defer uow.Rollback()

	if _, err := loadAccount(ctx, uow, accountID); err != nil {
		return nil, err
	}
	entries, err = uow.Logs().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit log entries")
	}
	return entries, nil
}

// RecordLogin stamps the last-login instant on the account. Login events are
// operational telemetry, not audited mutations: no log entry and no
// modification stamp are produced.
func (s *Service) RecordLogin(ctx context.Context, accountID domain.UserID, at time.Time) (err error) {
	defer func() { s.observe("user.login", err) }()

	ctx, span, uow, err := s.begin(ctx, "user.login")
	if err != nil {
		return err
	}
	defer span.End()
	defer uow.Rollback()

	account, err := loadAccount(ctx, uow, accountID)
	if err != nil {
		return err
	}
	account.RecordLogin(at)
	if err := uow.Accounts().Update(ctx, account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage account update")
	}
	return commit(ctx, uow)
}
