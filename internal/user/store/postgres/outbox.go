package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"custodia/internal/user"
)

// OutboxEntry is one pending publication: an audit log entry captured in the
// same transaction that committed it, waiting for the relay to hand it to
// Kafka.
type OutboxEntry struct {
	ID        uuid.UUID
	EventType string
	Key       string // aggregate id, used as the Kafka partition key
	Payload   []byte
	CreatedAt time.Time
}

// outboxPayload is the JSON shape published to Kafka. Field names are part of
// the consumer contract.
type outboxPayload struct {
	ID             string `json:"ID"`
	UserAccountID  string `json:"UserAccountID"`
	Action         string `json:"Action"`
	PerformedBy    string `json:"PerformedBy"`
	PerformedAtUtc string `json:"PerformedAtUtc"`
	OriginalValues string `json:"OriginalValues,omitempty"`
	NewValues      string `json:"NewValues,omitempty"`
}

func appendOutbox(ctx context.Context, exec dbExecutor, entry *user.AccountLog) error {
	payload := outboxPayload{
		ID:             entry.ID.String(),
		UserAccountID:  entry.UserAccountID.String(),
		Action:         entry.Action.String(),
		PerformedBy:    entry.PerformedBy.String(),
		PerformedAtUtc: entry.PerformedAtUtc.Format(time.RFC3339Nano),
		OriginalValues: entry.OriginalValues,
		NewValues:      entry.NewValues,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = exec.ExecContext(ctx, query,
		uuid.New(),
		"user_account",
		entry.UserAccountID.String(),
		entry.Action.String(),
		payloadBytes,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// Outbox reads and settles pending publications for the relay.
type Outbox struct {
	db *sql.DB
}

// NewOutbox creates an outbox reader over the given database.
func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db}
}

// ListPending returns up to limit unpublished entries in commit order.
func (o *Outbox) ListPending(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := o.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.EventType, &entry.Key, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps the given entries as delivered.
func (o *Outbox) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := o.db.ExecContext(ctx,
		`UPDATE outbox SET published_at = $1 WHERE id = ANY($2)`,
		time.Now().UTC(), pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}
