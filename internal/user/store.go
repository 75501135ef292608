package user

import (
	"context"

	"custodia/pkg/domain"
)

// AccountRepository is the aggregate's persistence port. Reads pass through
// to storage; writes stage into the owning unit of work's change set and
// become durable only when that unit of work commits.
//
// Reads return sentinel.ErrNotFound (wrapped) for missing rows; services
// translate sentinels into coded domain errors.
type AccountRepository interface {
	GetByID(ctx context.Context, id domain.UserID) (*UserAccount, error)
	FindByEmail(ctx context.Context, email domain.EmailAddress) (*UserAccount, error)
	ExistsByEmail(ctx context.Context, email domain.EmailAddress) (bool, error)
	GetAll(ctx context.Context) ([]*UserAccount, error)

	Add(ctx context.Context, account *UserAccount) error
	Update(ctx context.Context, account *UserAccount) error
	Remove(ctx context.Context, account *UserAccount) error
}

// LogRepository is the append-only port for audit log entries. Entries are
// never updated or removed.
type LogRepository interface {
	Add(ctx context.Context, entry *AccountLog) error
	ListByAccount(ctx context.Context, accountID domain.UserID) ([]*AccountLog, error)
}

// UnitOfWork is the transactional boundary. Both repositories share one
// staged change set; SaveChanges commits every staged write atomically:
// all land or none do. A use case writing an aggregate and its audit log
// entry stages both and calls SaveChanges exactly once.
//
// A unit of work is scoped to one request and never reused after
// SaveChanges returns, regardless of outcome. Staged writes on an abandoned
// unit of work are discarded.
//
// SaveChanges returns sentinel.ErrConflict (wrapped) when a storage
// constraint rejects the commit, the unique index on normalized email
// being the important one.
type UnitOfWork interface {
	Accounts() AccountRepository
	Logs() LogRepository
	SaveChanges(ctx context.Context) error

	// Rollback discards every staged write. Safe to defer: rollback after a
	// successful SaveChanges is a no-op.
	Rollback() error
}

// UnitOfWorkFactory mints a fresh unit of work per request/command.
type UnitOfWorkFactory interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
