// Package memory provides an in-memory unit of work for tests and local
// runs. It mirrors the storage contract exactly: writes stage into a change
// set, commit applies everything under one lock or nothing at all, and the
// unique index on normalized email rejects duplicates at commit time, the
// same place the relational store's constraint would.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"custodia/internal/user"
	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// Store is the shared durable state behind every unit of work it mints.
type Store struct {
	mu         sync.Mutex
	accounts   map[domain.UserID]user.UserAccount
	emailIndex map[string]domain.UserID // normalized email -> owner
	logs       map[domain.UserID][]user.AccountLog

	logAppendErr error // fault seam, see InjectLogAppendFailure
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:   make(map[domain.UserID]user.UserAccount),
		emailIndex: make(map[string]domain.UserID),
		logs:       make(map[domain.UserID][]user.AccountLog),
	}
}

// Begin mints a unit of work over this store.
func (s *Store) Begin(_ context.Context) (user.UnitOfWork, error) {
	return &unitOfWork{store: s}, nil
}

// InjectLogAppendFailure makes the next SaveChanges fail while applying a
// staged log insert. Test seam for verifying commit atomicity; pass nil to
// clear.
func (s *Store) InjectLogAppendFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logAppendErr = err
}

// Clear drops all state. Use between tests.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[domain.UserID]user.UserAccount)
	s.emailIndex = make(map[string]domain.UserID)
	s.logs = make(map[domain.UserID][]user.AccountLog)
}

type opKind int

const (
	opAddAccount opKind = iota
	opUpdateAccount
	opRemoveAccount
	opAddLog
)

type stagedOp struct {
	kind    opKind
	account *user.UserAccount
	entry   *user.AccountLog
}

type unitOfWork struct {
	store  *Store
	staged []stagedOp
	done   bool
}

func (u *unitOfWork) Accounts() user.AccountRepository { return &accountRepo{uow: u} }
func (u *unitOfWork) Logs() user.LogRepository         { return &logRepo{uow: u} }

// Rollback discards the staged change set.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.staged = nil
	u.done = true
	return nil
}

// SaveChanges validates every staged write against the committed state, then
// applies them all under the store lock. Any rejection leaves the store
// untouched.
func (u *unitOfWork) SaveChanges(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("unit of work already committed: %w", sentinel.ErrInvalidState)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validation pass: enforce the unique email constraint the way the
	// relational store would, before any state moves.
	claimed := make(map[string]domain.UserID)
	for id, account := range s.accounts {
		claimed[account.Email.String()] = id
	}
	for _, op := range u.staged {
		switch op.kind {
		case opAddAccount, opUpdateAccount:
			email := op.account.Email.String()
			if owner, ok := claimed[email]; ok && owner != op.account.ID {
				return fmt.Errorf("email %s already registered: %w", email, sentinel.ErrConflict)
			}
			// Within one change set, later claims must also collide.
			for prior, owner := range claimed {
				if owner == op.account.ID && prior != email {
					delete(claimed, prior)
				}
			}
			claimed[email] = op.account.ID
		case opRemoveAccount:
			delete(claimed, op.account.Email.String())
		case opAddLog:
			if s.logAppendErr != nil {
				return fmt.Errorf("append log entry: %w", s.logAppendErr)
			}
		}
	}

	// Apply pass: cannot fail past this point.
	for _, op := range u.staged {
		switch op.kind {
		case opAddAccount, opUpdateAccount:
			old, existed := s.accounts[op.account.ID]
			if existed {
				delete(s.emailIndex, old.Email.String())
			}
			s.accounts[op.account.ID] = *op.account
			s.emailIndex[op.account.Email.String()] = op.account.ID
		case opRemoveAccount:
			if old, existed := s.accounts[op.account.ID]; existed {
				delete(s.emailIndex, old.Email.String())
				delete(s.accounts, op.account.ID)
			}
		case opAddLog:
			s.logs[op.entry.UserAccountID] = append(s.logs[op.entry.UserAccountID], *op.entry)
		}
	}

	u.staged = nil
	u.done = true
	return nil
}

type accountRepo struct {
	uow *unitOfWork
}

func (r *accountRepo) GetByID(ctx context.Context, id domain.UserID) (*user.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, sentinel.ErrNotFound)
	}
	clone := account
	return &clone, nil
}

func (r *accountRepo) FindByEmail(ctx context.Context, email domain.EmailAddress) (*user.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.emailIndex[email.String()]
	if !ok {
		return nil, fmt.Errorf("account with email %s: %w", email, sentinel.ErrNotFound)
	}
	clone := s.accounts[id]
	return &clone, nil
}

func (r *accountRepo) ExistsByEmail(ctx context.Context, email domain.EmailAddress) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.emailIndex[email.String()]
	return ok, nil
}

func (r *accountRepo) GetAll(ctx context.Context) ([]*user.UserAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*user.UserAccount, 0, len(s.accounts))
	for _, account := range s.accounts {
		clone := account
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID.String() < all[j].ID.String() })
	return all, nil
}

func (r *accountRepo) Add(ctx context.Context, account *user.UserAccount) error {
	return r.stage(ctx, opAddAccount, account)
}

func (r *accountRepo) Update(ctx context.Context, account *user.UserAccount) error {
	return r.stage(ctx, opUpdateAccount, account)
}

func (r *accountRepo) Remove(ctx context.Context, account *user.UserAccount) error {
	return r.stage(ctx, opRemoveAccount, account)
}

func (r *accountRepo) stage(ctx context.Context, kind opKind, account *user.UserAccount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.uow.done {
		return fmt.Errorf("unit of work already committed: %w", sentinel.ErrInvalidState)
	}
	clone := *account
	r.uow.staged = append(r.uow.staged, stagedOp{kind: kind, account: &clone})
	return nil
}

type logRepo struct {
	uow *unitOfWork
}

func (r *logRepo) Add(ctx context.Context, entry *user.AccountLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.uow.done {
		return fmt.Errorf("unit of work already committed: %w", sentinel.ErrInvalidState)
	}
	clone := *entry
	r.uow.staged = append(r.uow.staged, stagedOp{kind: opAddLog, entry: &clone})
	return nil
}

func (r *logRepo) ListByAccount(ctx context.Context, accountID domain.UserID) ([]*user.AccountLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.uow.store
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.logs[accountID]
	out := make([]*user.AccountLog, 0, len(entries))
	for _, entry := range entries {
		clone := entry
		out = append(out, &clone)
	}
	return out, nil
}
