package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/meetsched/libs/db"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/calendar"
)

// ErrTokenExpired is returned for a stored access token past its expiry.
var ErrTokenExpired = errors.New("credentials: access token expired")

type Token struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	Scopes       []string
	ExpiresAt    *time.Time
}

// Store persists sealed provider tokens in provider_tokens.
type Store struct {
	pool     *db.Pool
	sealer   *Sealer
	provider string
	now      func() time.Time
}

func NewStore(pool *db.Pool, sealer *Sealer, provider string) *Store {
	return &Store{pool: pool, sealer: sealer, provider: provider, now: time.Now}
}

// Put stores tok for its user, replacing any previous token for the provider.
func (s *Store) Put(ctx context.Context, tok Token) error {
	access, err := s.sealer.Seal(tok.AccessToken)
	if err != nil {
		return err
	}
	var refresh *string
	if tok.RefreshToken != "" {
		sealed, err := s.sealer.Seal(tok.RefreshToken)
		if err != nil {
			return err
		}
		refresh = &sealed
	}
	provider := tok.Provider
	if provider == "" {
		provider = s.provider
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO provider_tokens (user_id, provider, access_token, refresh_token, scopes, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = COALESCE(EXCLUDED.refresh_token, provider_tokens.refresh_token),
		    scopes = EXCLUDED.scopes,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
	`, tok.UserID, provider, access, refresh, tok.Scopes, tok.ExpiresAt)
	return err
}

// AccessToken returns the decrypted access token for identity.
func (s *Store) AccessToken(ctx context.Context, identity string) (string, error) {
	if s == nil || s.pool == nil {
		return "", calendar.ErrNotConnected
	}
	var sealed string
	var expiresAt *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT access_token, expires_at
		FROM provider_tokens
		WHERE user_id = $1 AND provider = $2
	`, identity, s.provider).Scan(&sealed, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", calendar.ErrNotConnected
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if expiresAt != nil && !s.now().Before(*expiresAt) {
		return "", ErrTokenExpired
	}
	return s.sealer.Open(sealed)
}

// Delete removes the stored token for identity.
func (s *Store) Delete(ctx context.Context, identity string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM provider_tokens
		WHERE user_id = $1 AND provider = $2
	`, identity, s.provider)
	return err
}

var _ calendar.TokenSource = (*Store)(nil)
