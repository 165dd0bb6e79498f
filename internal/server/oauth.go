package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/ytdeck/internal/shared"
	"golang.org/x/oauth2"
)

// TokenSaver persists the token obtained by a successful callback.
type TokenSaver interface {
	Save(token *oauth2.Token) error
}

// OAuthResult is the outcome of one authorization code flow.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler completes the Google authorization code flow on /callback.
//
// It accepts a single callback; later requests are rejected.
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	saver  TokenSaver
	result chan OAuthResult

	mu   sync.Mutex
	done bool
}

// NewOAuthHandler creates a handler for config. state must be unguessable.
//
// When saver is not nil the token is persisted before the success page is shown.
func NewOAuthHandler(config *oauth2.Config, state string, saver TokenSaver) *OAuthHandler {
	return &OAuthHandler{config: config, state: state, saver: saver, result: make(chan OAuthResult, 1)}
}

func (h *OAuthHandler) Routes() []string { return []string{"GET /callback"} }

// AuthURL is the consent page URL. Offline access asks Google for a refresh token.
func (h *OAuthHandler) AuthURL() string {
	return h.config.AuthCodeURL(h.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Login redirects the browser to the consent page.
func (h *OAuthHandler) Login() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, h.AuthURL(), http.StatusFound)
	})
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.done = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.finish(OAuthResult{Err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.finish(OAuthResult{Err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		h.finish(OAuthResult{Err: fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	if h.saver != nil {
		if err := h.saver.Save(token); err != nil {
			h.finish(OAuthResult{Err: fmt.Errorf("failed to save token: %w", err)})
			http.Error(w, "Could not store token", http.StatusInternalServerError)
			return
		}
	}

	h.finish(OAuthResult{Token: token})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = successPage.Execute(w, token.Expiry.Format(time.RFC1123))
}

func (h *OAuthHandler) finish(result OAuthResult) {
	h.result <- result
	close(h.result)
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult { return h.result }

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>ytdeck authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0f0f0f; color: #f1f1f1; }
        .container { text-align: center; padding: 2rem; border-radius: 8px; background: #212121; }
        h1 { color: #ff0033; margin: 0 0 1rem 0; }
        p { color: #aaa; margin: 0.25rem 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>YouTube account linked</h1>
        <p>Access token valid until {{.}}.</p>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))
