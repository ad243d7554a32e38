package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type ctxKey int

const ctxKeyClaims ctxKey = iota

// Verifier checks bearer tokens: RS256 tokens with a kid go through JWKS when
// configured, everything else is verified as HS256 with Secret. Issuer and
// Audience are enforced only when set.
type Verifier struct {
	Secret   string
	JWKS     *JWKSClient
	Issuer   string
	Audience string
	Leeway   time.Duration
}

func (v Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := v.verifySignature(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := claims.Validate(time.Now(), v.Leeway); err != nil {
		return nil, err
	}
	if v.Issuer != "" && claims.Iss != v.Issuer {
		return nil, ErrInvalidToken
	}
	if v.Audience != "" && !claims.Aud.Contains(v.Audience) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (v Verifier) verifySignature(ctx context.Context, token string) (*Claims, error) {
	if v.JWKS != nil {
		header, err := ParseHeader(token)
		if err != nil {
			return nil, err
		}
		if header.Alg == "RS256" && header.Kid != "" {
			pub, err := v.JWKS.Get(ctx, header.Kid)
			if err != nil {
				return nil, err
			}
			return verifyRS256(token, pub)
		}
	}
	if v.Secret == "" {
		return nil, ErrInvalidToken
	}
	return verifyHS256(token, v.Secret)
}

// RequireBearer rejects requests without a valid bearer token and stores the
// verified claims on the request context.
func RequireBearer(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
			if !strings.HasPrefix(authHeader, "Bearer ") || token == "" {
				http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

func ContextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, c)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return c, ok && c != nil
}

// SubjectFromContext returns the authenticated identity, or "" when absent.
func SubjectFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.Sub
	}
	return ""
}
