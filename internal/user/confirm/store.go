// Package confirm issues and redeems the single-use tokens that gate email
// change confirmation. A token is an opaque capability: whoever presents it
// proves control of the staged address. Tokens expire on a TTL and are
// consumed atomically on first redemption.
package confirm

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"custodia/pkg/domain"
)

// DefaultTTL is how long a confirmation token stays redeemable.
const DefaultTTL = 24 * time.Hour

// TokenStore issues and redeems confirmation tokens.
//
// Redeem consumes the token: a second redemption of the same token fails
// with sentinel.ErrNotFound, as does an expired or unknown token.
type TokenStore interface {
	Issue(ctx context.Context, accountID domain.UserID, ttl time.Duration) (string, error)
	Redeem(ctx context.Context, token string) (domain.UserID, error)
}

// newToken returns a 256-bit URL-safe random token.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate confirmation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
