// Package server hosts the local HTTP endpoints used to link a YouTube account.
//
// # Router
//
// [BasicRouter] implements [Router] with [http.ServeMux] method patterns.
// [Middleware] is applied in the order it was added, so the first middleware
// sees the request first. [LogRequests] and [Recover] are the stock stack.
//
// # OAuth Callback
//
// [OAuthHandler] serves GET /callback for the Google authorization code flow.
// It checks the state parameter, exchanges the code, persists the token through
// a [TokenSaver] and reports exactly one [OAuthResult]. Only the first callback
// is processed.
//
// "ytdeck auth login" starts a [Server] on the configured address, opens the
// consent page and shuts the server down once the result arrives.
package server
