package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdeck/internal/shared"
	"golang.org/x/oauth2"
)

// ProviderYouTube is the provider key tokens are stored under.
const ProviderYouTube = "youtube"

// TokenRepository stores one OAuth token per provider.
//
// With an OAuth config attached it also acts as the engine's credentials, refreshing expired tokens on demand.
type TokenRepository struct {
	db       *sql.DB
	provider string
	config   *oauth2.Config
}

// NewTokenRepository creates a TokenRepository for provider.
func NewTokenRepository(db *sql.DB, provider string) *TokenRepository {
	return &TokenRepository{db: db, provider: provider}
}

// WithConfig attaches the OAuth config used to refresh expired tokens.
func (r *TokenRepository) WithConfig(config *oauth2.Config) *TokenRepository {
	r.config = config
	return r
}

// Save upserts the token.
func (r *TokenRepository) Save(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrInvalidInput)
	}

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry
	}

	query := `
		INSERT INTO oauth_tokens (provider, access_token, refresh_token, token_type, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = CASE WHEN excluded.refresh_token = '' THEN oauth_tokens.refresh_token ELSE excluded.refresh_token END,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, r.provider, token.AccessToken, token.RefreshToken, token.TokenType, expiry, time.Now()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Load returns the stored token or [shared.ErrNotAuthenticated] when there is none.
func (r *TokenRepository) Load() (*oauth2.Token, error) {
	var (
		token  oauth2.Token
		expiry sql.NullTime
	)

	err := r.db.QueryRow(
		`SELECT access_token, refresh_token, token_type, expiry FROM oauth_tokens WHERE provider = ?`,
		r.provider,
	).Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return &token, nil
}

// Delete removes the stored token. Deleting a missing token is not an error.
func (r *TokenRepository) Delete() error {
	if _, err := r.db.Exec(`DELETE FROM oauth_tokens WHERE provider = ?`, r.provider); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// AccessToken returns a valid access token, refreshing and saving it when it has expired.
func (r *TokenRepository) AccessToken(ctx context.Context) (string, error) {
	token, err := r.Load()
	if err != nil {
		return "", err
	}
	if token.Valid() {
		return token.AccessToken, nil
	}

	if r.config == nil || token.RefreshToken == "" {
		return "", shared.ErrTokenExpired
	}

	refreshed, err := r.config.TokenSource(ctx, token).Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh failed: %v", shared.ErrTokenExpired, err)
	}
	if err := r.Save(refreshed); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}
