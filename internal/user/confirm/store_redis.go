package confirm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

var redeemDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "custodia_confirm_redeem_duration_ms",
	Help:    "Latency of confirmation token redemptions in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const tokenKeyPrefix = "confirm:token:"

// RedisTokens is the Redis-backed token store. Expiry rides on Redis TTLs;
// redemption uses GETDEL so a token can only ever be consumed once, even
// under concurrent redemption attempts.
type RedisTokens struct {
	client *redis.Client
}

// NewRedisTokens constructs a Redis-backed token store.
func NewRedisTokens(client *redis.Client) *RedisTokens {
	return &RedisTokens{client: client}
}

// Issue stores a fresh token mapped to the account for the given TTL.
func (s *RedisTokens) Issue(ctx context.Context, accountID domain.UserID, ttl time.Duration) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	key := tokenKeyPrefix + token
	if err := s.client.Set(ctx, key, accountID.String(), ttl).Err(); err != nil {
		return "", fmt.Errorf("store confirmation token: %w", err)
	}
	return token, nil
}

// Redeem consumes the token and returns the account it was issued for.
func (s *RedisTokens) Redeem(ctx context.Context, token string) (domain.UserID, error) {
	start := time.Now()
	defer func() {
		redeemDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := tokenKeyPrefix + token
	val, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.UserID{}, fmt.Errorf("confirmation token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return domain.UserID{}, fmt.Errorf("redeem confirmation token: %w", err)
	}
	accountID, err := domain.ParseUserID(val)
	if err != nil {
		return domain.UserID{}, fmt.Errorf("stored token payload: %w", err)
	}
	return accountID, nil
}
