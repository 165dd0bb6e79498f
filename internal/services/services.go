// package services defines interface Catalog for the remote playlist provider
//
// YouTube Data API v3
package services

import (
	"context"

	"github.com/desertthunder/ytdeck/internal/models"
)

// Catalog is the remote store of the user's playlists.
//
// Every method takes the caller's OAuth access token; an empty token fails with [shared.ErrNotAuthenticated] before any request is made.
type Catalog interface {
	// ListPlaylists returns every playlist owned by the user, draining all pages.
	ListPlaylists(ctx context.Context, token string) ([]models.PlaylistSummary, error)

	// ListPlaylistItems returns every item of a playlist in position order, draining all pages.
	ListPlaylistItems(ctx context.Context, token, playlistID string) ([]models.PlaylistItem, error)

	// InsertItem adds ref to a playlist at position and returns the new membership id.
	InsertItem(ctx context.Context, token, playlistID string, ref models.ResourceRef, position int) (string, error)

	// UpdateItemPosition moves an existing membership record to position within its playlist.
	UpdateItemPosition(ctx context.Context, token, itemID, playlistID string, ref models.ResourceRef, position int) error

	// DeleteItem removes a membership record.
	DeleteItem(ctx context.Context, token, itemID string) error
}
