package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/ytdeck/internal/server"
	"github.com/desertthunder/ytdeck/internal/services"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the OAuth authorization code flow against a local callback server
// and stores the resulting token in the database.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oauthConfig, err := services.NewOAuthConfig(r.config.Credentials.YouTube)
	if err != nil {
		return err
	}
	tokens, err := r.tokens()
	if err != nil {
		return err
	}

	handler := server.NewOAuthHandler(oauthConfig, shared.GenerateID(), tokens)

	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.LogRequests(r.logger))
	router.Handler(handler)
	router.Handle(http.MethodGet, "/login", handler.Login())

	srv := server.New(r.config.Server.Addr(), router, r.logger)
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("failed to stop callback server", "error", err)
		}
	}()

	authURL := handler.AuthURL()
	r.logger.Info("callback server listening", "addr", srv.Addr())
	r.writePlain("→ Opening browser for Google authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to continue:\n\n  %s\n\n", authURL)
	}

	timeout := cmd.Duration("timeout")
	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return result.Err
		}
	case err := <-srv.Errors():
		return fmt.Errorf("%w: callback server: %v", shared.ErrServiceUnavailable, err)
	case <-time.After(timeout):
		return fmt.Errorf("%w: no authorization received within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("✓ Token saved to %s\n", r.config.Database.Path)
	return nil
}

// AuthLogout revokes the stored token at Google and deletes it locally.
//
// A failed revoke is reported but the local token is still removed.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokens()
	if err != nil {
		return err
	}

	token, err := tokens.Load()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		r.writePlain("Not logged in\n")
		return nil
	} else if err != nil {
		return err
	}

	revoke := token.RefreshToken
	if revoke == "" {
		revoke = token.AccessToken
	}
	if err := services.RevokeToken(ctx, r.httpClient, revoke); err != nil {
		r.logger.Warn("failed to revoke token", "error", err)
	}

	if err := tokens.Delete(); err != nil {
		return err
	}
	r.writePlain("✓ Logged out\n")
	return nil
}

// AuthStatus reports whether a token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokens()
	if err != nil {
		return err
	}

	token, err := tokens.Load()
	if errors.Is(err, shared.ErrNotAuthenticated) {
		r.writePlain("✗ Not authenticated. Run 'ytdeck auth login'\n")
		return nil
	} else if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": true,
			"valid":         token.Valid(),
			"expiry":        token.Expiry,
			"refreshable":   token.RefreshToken != "",
		}, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Authenticated\n")
	if token.Valid() && token.Expiry.IsZero() {
		r.writePlain("  Access token valid\n")
	} else if token.Valid() {
		r.writePlain("  Access token valid until %s\n", token.Expiry.Local().Format(time.DateTime))
	} else {
		r.writePlain("  Access token expired\n")
	}
	if token.RefreshToken != "" {
		r.writePlain("  Refresh token stored\n")
	} else {
		r.writePlain("  No refresh token; run 'ytdeck auth login' when the access token expires\n")
	}
	return nil
}
