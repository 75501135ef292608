package outbox

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher publishes outbox payloads through a franz-go client.
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher wraps an existing client; its lifecycle is managed by the
// caller.
func NewKafkaPublisher(client *kgo.Client) *KafkaPublisher {
	return &KafkaPublisher{client: client}
}

// Publish produces one record synchronously. The relay retries on the next
// sweep, so there is no in-publisher retry.
func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce outbox record: %w", err)
	}
	return nil
}
