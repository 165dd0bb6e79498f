package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/ytdeck/internal/shared"
	"golang.org/x/oauth2"
	"google.golang.org/api/youtube/v3"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
)

var googleRevokeURL = "https://oauth2.googleapis.com/revoke"

// NewOAuthConfig builds the OAuth2 config for the YouTube Data API.
//
// The scope allows reading and editing the user's playlists.
func NewOAuthConfig(creds shared.YouTubeConfig) (*oauth2.Config, error) {
	if creds.ClientID == "" {
		return nil, fmt.Errorf("%w: youtube client_id", shared.ErrMissingCredentials)
	}
	if creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: youtube client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{youtube.YoutubeScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
	}, nil
}

// RevokeToken invalidates an access or refresh token at Google.
func RevokeToken(ctx context.Context, client *http.Client, token string) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}
	if client == nil {
		client = http.DefaultClient
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleRevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: revoke: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: revoke: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}
