// Package services defines the [Catalog] interface for the remote playlist provider and implements it for YouTube.
//
// # Catalog Interface
//
// The sync engine and loader only see [Catalog]: list playlists, list items, and insert, reposition or delete a single membership record.
// Each call carries the caller's access token so the token can change between calls without rebuilding the client.
//
// # YouTube Implementation
//
// [YouTubeCatalog] wraps the generated google.golang.org/api/youtube/v3 client.
// A static [oauth2.TokenSource] authenticates each call and list endpoints are drained with Pages.
// A single [rate.Limiter] sits in the HTTP transport so page requests count against the same budget as writes.
//
// Item positions are sent with ForceSendFields so that position 0 is not dropped from the request body.
//
// # OAuth
//
// [NewOAuthConfig] builds the Google authorization code config used by the CLI login flow.
// [RevokeToken] posts to Google's revoke endpoint on logout.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : empty access token, no request sent
//   - [shared.ErrTokenExpired] : 401 from the API
//   - [shared.ErrItemNotFound] : 404 from the API
//   - [shared.ErrAPIRequest] : any other failed request
package services
