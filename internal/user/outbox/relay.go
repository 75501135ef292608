// Package outbox relays committed audit log entries from the outbox table to
// Kafka. Rows are written in the same transaction as the log entries they
// mirror (see the postgres store), so the relay can publish them later
// without ever racing the commit. Delivery is at-least-once: a crash between
// publish and mark replays the entry on the next sweep, and consumers key on
// the entry ID for deduplication.
package outbox

//go:generate mockgen -source=relay.go -destination=mocks/mocks.go -package=mocks Source,Publisher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"custodia/internal/user/store/postgres"
)

// DefaultTopic is where account audit entries are published.
const DefaultTopic = "custodia.user-account.audit"

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "custodia_outbox_published_total",
		Help: "Outbox entries successfully published to Kafka",
	})
	publishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "custodia_outbox_publish_errors_total",
		Help: "Outbox publish attempts that failed",
	})
)

// Source lists and settles pending outbox entries.
type Source interface {
	ListPending(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Publisher hands one payload to the broker. Key carries the account ID so
// one account's entries stay ordered within a partition.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// Relay periodically sweeps the outbox and publishes pending entries.
type Relay struct {
	source    Source
	publisher Publisher
	logger    *zap.Logger
	topic     string
	interval  time.Duration
	batchSize int
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithTopic overrides the destination topic.
func WithTopic(topic string) RelayOption {
	return func(r *Relay) {
		if topic != "" {
			r.topic = topic
		}
	}
}

// WithInterval overrides the sweep interval.
func WithInterval(interval time.Duration) RelayOption {
	return func(r *Relay) {
		if interval > 0 {
			r.interval = interval
		}
	}
}

// WithBatchSize overrides how many entries one sweep drains.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// NewRelay constructs an outbox relay.
func NewRelay(source Source, publisher Publisher, logger *zap.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		source:    source,
		publisher: publisher,
		logger:    logger,
		topic:     DefaultTopic,
		interval:  time.Second,
		batchSize: 100,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Run sweeps until the context is cancelled. Publish failures are logged and
// retried on the next sweep; they never stop the relay.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil {
				r.logger.Error("outbox sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep publishes one batch of pending entries and marks the delivered ones.
// An entry that fails to publish blocks the ones behind it with the same key
// only; later entries still go out, preserving per-sweep progress.
func (r *Relay) Sweep(ctx context.Context) error {
	entries, err := r.source.ListPending(ctx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	delivered := make([]uuid.UUID, 0, len(entries))
	blocked := make(map[string]struct{})
	for _, entry := range entries {
		// Keep per-account ordering: once one entry for a key fails, hold
		// the rest of that key's entries back until the next sweep.
		if _, held := blocked[entry.Key]; held {
			continue
		}
		if err := r.publisher.Publish(ctx, r.topic, entry.Key, entry.Payload); err != nil {
			publishErrorsTotal.Inc()
			blocked[entry.Key] = struct{}{}
			r.logger.Warn("outbox publish failed",
				zap.String("outbox_id", entry.ID.String()),
				zap.String("event_type", entry.EventType),
				zap.Error(err),
			)
			continue
		}
		publishedTotal.Inc()
		delivered = append(delivered, entry.ID)
	}

	if len(delivered) == 0 {
		return nil
	}
	return r.source.MarkPublished(ctx, delivered)
}
