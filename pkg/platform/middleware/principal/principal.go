// Package principal authenticates requests and resolves the audit principal
// every mutation is attributed to. Users arrive with a bearer JWT whose
// subject is their account ID; trusted services identify themselves through
// a service claim instead.
package principal

import (
	"fmt"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// Verifier turns a raw bearer token into an audit principal.
type Verifier interface {
	Verify(token string) (domain.AuditPrincipal, error)
}

// JWTVerifier validates HS256-signed tokens. The subject claim carries the
// user account ID; a "svc" claim instead marks a service-to-service call.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a verifier over a shared HMAC secret.
func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

type principalClaims struct {
	Service string `json:"svc,omitempty"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token and derives the principal.
func (v *JWTVerifier) Verify(raw string) (domain.AuditPrincipal, error) {
	var claims principalClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return domain.AuditPrincipal{}, fmt.Errorf("validate token: %w", err)
	}

	if claims.Service != "" {
		return domain.PrincipalFromSystem(claims.Service)
	}
	userID, err := domain.ParseUserID(claims.Subject)
	if err != nil {
		return domain.AuditPrincipal{}, fmt.Errorf("token subject: %w", err)
	}
	return domain.PrincipalFromUser(userID)
}

// Require rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func Require(verifier Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			p, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("unauthorized request",
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.Error(err),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"unauthorized","error_description":"%s"}`, desc))
}
