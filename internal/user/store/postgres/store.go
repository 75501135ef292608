// Package postgres persists user accounts and their audit log entries. A
// unit of work maps onto one database transaction: repository writes execute
// against the transaction immediately, SaveChanges commits it. Every log
// entry insert also writes an outbox row in the same transaction; the outbox
// relay publishes those rows to Kafka afterwards.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"custodia/internal/user"
	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
	txcontext "custodia/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply user schema: %w", err)
	}
	return nil
}

// Factory mints one unit of work per command, each backed by its own
// transaction.
type Factory struct {
	db *sql.DB
}

// NewFactory creates a unit-of-work factory over the given database.
func NewFactory(db *sql.DB) *Factory {
	return &Factory{db: db}
}

// Begin opens a transaction and wraps it in a unit of work.
func (f *Factory) Begin(ctx context.Context) (user.UnitOfWork, error) {
	sqlTx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &unitOfWork{tx: sqlTx}, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type unitOfWork struct {
	tx   *sql.Tx
	done bool
}

func (u *unitOfWork) Accounts() user.AccountRepository { return &accountRepo{uow: u} }
func (u *unitOfWork) Logs() user.LogRepository         { return &logRepo{uow: u} }

// execer prefers a transaction carried in the context so tx-aware callers can
// compose, falling back to this unit of work's own transaction.
func (u *unitOfWork) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return u.tx
}

// SaveChanges commits the transaction. Constraint rejections, the unique
// email index above all, surface as wrapped sentinel.ErrConflict.
func (u *unitOfWork) SaveChanges(ctx context.Context) error {
	if u.done {
		return fmt.Errorf("unit of work already committed: %w", sentinel.ErrInvalidState)
	}
	u.done = true
	if err := ctx.Err(); err != nil {
		_ = u.tx.Rollback()
		return err
	}
	if err := u.tx.Commit(); err != nil {
		return translateConstraint("commit unit of work", err)
	}
	return nil
}

// Rollback discards the unit of work without committing. Safe to defer; a
// rollback after a successful commit is a no-op.
func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}

// translateConstraint maps a PostgreSQL unique violation (class 23505) onto
// the conflict sentinel so services can turn it into a duplicate error.
func translateConstraint(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %v: %w", op, err, sentinel.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type accountRepo struct {
	uow *unitOfWork
}

const accountColumns = `
	id, first_name, last_name, email, pending_email, previous_email,
	deactivated_at, last_login_at,
	created_at, created_by, modified_at, modified_by, deleted_at, deleted_by
`

func (r *accountRepo) GetByID(ctx context.Context, id domain.UserID) (*user.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM user_accounts WHERE id = $1`
	row := r.uow.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id))
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return account, nil
}

func (r *accountRepo) FindByEmail(ctx context.Context, email domain.EmailAddress) (*user.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM user_accounts WHERE email = $1`
	row := r.uow.execer(ctx).QueryRowContext(ctx, query, email.String())
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account with email %s: %w", email, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return account, nil
}

func (r *accountRepo) ExistsByEmail(ctx context.Context, email domain.EmailAddress) (bool, error) {
	var exists bool
	err := r.uow.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_accounts WHERE email = $1)`, email.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email existence: %w", err)
	}
	return exists, nil
}

func (r *accountRepo) GetAll(ctx context.Context) ([]*user.UserAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM user_accounts ORDER BY id`
	rows, err := r.uow.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*user.UserAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepo) Add(ctx context.Context, account *user.UserAccount) error {
	query := `
		INSERT INTO user_accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.uow.execer(ctx).ExecContext(ctx, query, accountArgs(account)...)
	if err != nil {
		return translateConstraint("insert account", err)
	}
	return nil
}

func (r *accountRepo) Update(ctx context.Context, account *user.UserAccount) error {
	query := `
		UPDATE user_accounts SET
			first_name = $2, last_name = $3, email = $4,
			pending_email = $5, previous_email = $6,
			deactivated_at = $7, last_login_at = $8,
			created_at = $9, created_by = $10,
			modified_at = $11, modified_by = $12,
			deleted_at = $13, deleted_by = $14
		WHERE id = $1
	`
	res, err := r.uow.execer(ctx).ExecContext(ctx, query, accountArgs(account)...)
	if err != nil {
		return translateConstraint("update account", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrNotFound)
	}
	return nil
}

func (r *accountRepo) Remove(ctx context.Context, account *user.UserAccount) error {
	_, err := r.uow.execer(ctx).ExecContext(ctx,
		`DELETE FROM user_accounts WHERE id = $1`, uuid.UUID(account.ID))
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func accountArgs(account *user.UserAccount) []any {
	return []any{
		uuid.UUID(account.ID),
		account.FirstName.String(),
		account.LastName.String(),
		account.Email.String(),
		nullString(account.PendingEmail.String()),
		nullString(account.PreviousEmail.String()),
		nullTime(account.DeactivatedAt),
		nullTime(account.LastLoginAt),
		account.Audit.CreatedAtUtc,
		account.Audit.CreatedBy.String(),
		account.Audit.ModifiedAtUtc,
		account.Audit.ModifiedBy.String(),
		nullTime(account.Audit.DeletedAtUtc),
		nullString(account.Audit.DeletedBy.String()),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*user.UserAccount, error) {
	var (
		id                          uuid.UUID
		firstName, lastName, email  string
		pendingEmail, previousEmail sql.NullString
		deactivatedAt, lastLoginAt  sql.NullTime
		createdAt, modifiedAt       time.Time
		createdBy, modifiedBy       string
		deletedAt                   sql.NullTime
		deletedBy                   sql.NullString
	)
	err := row.Scan(
		&id, &firstName, &lastName, &email, &pendingEmail, &previousEmail,
		&deactivatedAt, &lastLoginAt,
		&createdAt, &createdBy, &modifiedAt, &modifiedBy, &deletedAt, &deletedBy,
	)
	if err != nil {
		return nil, err
	}

	creator, err := domain.ReconstructPrincipal(createdBy)
	if err != nil {
		return nil, fmt.Errorf("created_by: %w", err)
	}
	modifier, err := domain.ReconstructPrincipal(modifiedBy)
	if err != nil {
		return nil, fmt.Errorf("modified_by: %w", err)
	}

	account := &user.UserAccount{
		ID:        domain.UserID(id),
		FirstName: domain.ReconstructPersonName(firstName),
		LastName:  domain.ReconstructPersonName(lastName),
		Email:     domain.ReconstructEmailAddress(email),
		Audit: domain.AuditStamp{
			CreatedAtUtc:  createdAt.UTC(),
			CreatedBy:     creator,
			ModifiedAtUtc: modifiedAt.UTC(),
			ModifiedBy:    modifier,
		},
	}
	if pendingEmail.Valid {
		account.PendingEmail = domain.ReconstructEmailAddress(pendingEmail.String)
	}
	if previousEmail.Valid {
		account.PreviousEmail = domain.ReconstructEmailAddress(previousEmail.String)
	}
	if deactivatedAt.Valid {
		account.DeactivatedAt = deactivatedAt.Time.UTC()
	}
	if lastLoginAt.Valid {
		account.LastLoginAt = lastLoginAt.Time.UTC()
	}
	if deletedAt.Valid {
		account.Audit.DeletedAtUtc = deletedAt.Time.UTC()
	}
	if deletedBy.Valid {
		deleter, err := domain.ReconstructPrincipal(deletedBy.String)
		if err != nil {
			return nil, fmt.Errorf("deleted_by: %w", err)
		}
		account.Audit.DeletedBy = deleter
	}
	return account, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type logRepo struct {
	uow *unitOfWork
}

// Add inserts the log entry and its outbox row in the same transaction, so
// the entry and its eventual Kafka publication cannot diverge from the
// aggregate write they accompany.
func (r *logRepo) Add(ctx context.Context, entry *user.AccountLog) error {
	query := `
		INSERT INTO user_account_logs (
			id, user_account_id, action, performed_by, performed_at,
			original_values, new_values
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.uow.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		uuid.UUID(entry.UserAccountID),
		entry.Action.String(),
		entry.PerformedBy.String(),
		entry.PerformedAtUtc,
		entry.OriginalValues,
		entry.NewValues,
	)
	if err != nil {
		return translateConstraint("insert log entry", err)
	}
	return appendOutbox(ctx, r.uow.execer(ctx), entry)
}

func (r *logRepo) ListByAccount(ctx context.Context, accountID domain.UserID) ([]*user.AccountLog, error) {
	query := `
		SELECT id, user_account_id, action, performed_by, performed_at,
			   original_values, new_values
		FROM user_account_logs
		WHERE user_account_id = $1
		ORDER BY performed_at
	`
	rows, err := r.uow.execer(ctx).QueryContext(ctx, query, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	var entries []*user.AccountLog
	for rows.Next() {
		var (
			id, userAccountID    uuid.UUID
			action, performedBy  string
			performedAt          time.Time
			oldValues, newValues string
		)
		if err := rows.Scan(&id, &userAccountID, &action, &performedBy, &performedAt, &oldValues, &newValues); err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		act, err := domain.ReconstructAction(action)
		if err != nil {
			return nil, fmt.Errorf("action: %w", err)
		}
		by, err := domain.ReconstructPrincipal(performedBy)
		if err != nil {
			return nil, fmt.Errorf("performed_by: %w", err)
		}
		entries = append(entries, &user.AccountLog{
			ID:             domain.LogID(id),
			UserAccountID:  domain.UserID(userAccountID),
			Action:         act,
			PerformedBy:    by,
			PerformedAtUtc: performedAt.UTC(),
			OriginalValues: oldValues,
			NewValues:      newValues,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log entries: %w", err)
	}
	return entries, nil
}
