// YouTube Data API [Catalog] implementation
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	maxPageSize   int64 = 50
	defaultRPS          = 5.0
	defaultBurst        = 2
	videoKind           = "youtube#video"
	positionField       = "Position"
	snippetPart         = "snippet"
)

// YouTubeCatalogOpts configures a [YouTubeCatalog].
type YouTubeCatalogOpts struct {
	Endpoint          string       // API base URL; empty uses the public endpoint
	HTTPClient        *http.Client // Base transport; nil uses [http.DefaultClient]
	RequestsPerSecond float64      // Shared request budget (default: 5)
	Burst             int          // Limiter burst (default: 2)
	Logger            *log.Logger
}

// YouTubeCatalog implements [Catalog] with the YouTube Data API.
//
// All requests, including the page requests issued while draining lists, share one rate limiter.
type YouTubeCatalog struct {
	endpoint   string
	httpClient *http.Client
	logger     *log.Logger
}

// NewYouTubeCatalog creates a catalog client.
func NewYouTubeCatalog(opts YouTubeCatalogOpts) *YouTubeCatalog {
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	base := http.DefaultTransport
	if opts.HTTPClient != nil && opts.HTTPClient.Transport != nil {
		base = opts.HTTPClient.Transport
	}

	return &YouTubeCatalog{
		endpoint: opts.Endpoint,
		httpClient: &http.Client{
			Transport: &throttledTransport{
				base:    base,
				limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
			},
		},
		logger: opts.Logger,
	}
}

// throttledTransport waits on the limiter before every round trip.
type throttledTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// service builds an API client bound to token.
func (c *YouTubeCatalog) service(ctx context.Context, token string) (*youtube.Service, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	return svc, nil
}

// ListPlaylists retrieves the user's playlists.
//
// Calls GET /youtube/v3/playlists?mine=true until nextPageToken is empty.
func (c *YouTubeCatalog) ListPlaylists(ctx context.Context, token string) ([]models.PlaylistSummary, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}

	var summaries []models.PlaylistSummary
	call := svc.Playlists.List([]string{snippetPart}).Mine(true).MaxResults(maxPageSize)
	err = call.Pages(ctx, func(resp *youtube.PlaylistListResponse) error {
		for _, p := range resp.Items {
			summary := models.PlaylistSummary{ID: p.Id}
			if p.Snippet != nil {
				summary.Title = p.Snippet.Title
				summary.Thumbnail = thumbnailURL(p.Snippet.Thumbnails)
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, wrapAPIError("list playlists", err)
	}

	c.logger.Debug("listed playlists", "count", len(summaries))
	return summaries, nil
}

// ListPlaylistItems retrieves every item of a playlist.
//
// Calls GET /youtube/v3/playlistItems?playlistId={id} until nextPageToken is empty.
func (c *YouTubeCatalog) ListPlaylistItems(ctx context.Context, token, playlistID string) ([]models.PlaylistItem, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, err
	}

	var items []models.PlaylistItem
	call := svc.PlaylistItems.List([]string{snippetPart}).PlaylistId(playlistID).MaxResults(maxPageSize)
	err = call.Pages(ctx, func(resp *youtube.PlaylistItemListResponse) error {
		for _, it := range resp.Items {
			items = append(items, toPlaylistItem(it, playlistID))
		}
		return nil
	})
	if err != nil {
		return nil, wrapAPIError("list playlist items", err)
	}

	c.logger.Debug("listed playlist items", "playlist", playlistID, "count", len(items))
	return items, nil
}

// InsertItem adds a resource to a playlist.
//
// Calls POST /youtube/v3/playlistItems?part=snippet.
func (c *YouTubeCatalog) InsertItem(ctx context.Context, token, playlistID string, ref models.ResourceRef, position int) (string, error) {
	svc, err := c.service(ctx, token)
	if err != nil {
		return "", err
	}

	body := &youtube.PlaylistItem{Snippet: itemSnippet(playlistID, ref, position)}
	created, err := svc.PlaylistItems.Insert([]string{snippetPart}, body).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError("insert playlist item", err)
	}

	c.logger.Debug("inserted playlist item", "playlist", playlistID, "video", ref.VideoID, "position", position, "id", created.Id)
	return created.Id, nil
}

// UpdateItemPosition moves a membership record within its playlist.
//
// Calls PUT /youtube/v3/playlistItems?part=snippet. The API rejects updates without the playlist id and resource.
func (c *YouTubeCatalog) UpdateItemPosition(ctx context.Context, token, itemID, playlistID string, ref models.ResourceRef, position int) error {
	svc, err := c.service(ctx, token)
	if err != nil {
		return err
	}

	body := &youtube.PlaylistItem{Id: itemID, Snippet: itemSnippet(playlistID, ref, position)}
	if _, err := svc.PlaylistItems.Update([]string{snippetPart}, body).Context(ctx).Do(); err != nil {
		return wrapAPIError("update playlist item", err)
	}

	c.logger.Debug("updated playlist item", "id", itemID, "position", position)
	return nil
}

// DeleteItem removes a membership record.
//
// Calls DELETE /youtube/v3/playlistItems?id={id}.
func (c *YouTubeCatalog) DeleteItem(ctx context.Context, token, itemID string) error {
	svc, err := c.service(ctx, token)
	if err != nil {
		return err
	}

	if err := svc.PlaylistItems.Delete(itemID).Context(ctx).Do(); err != nil {
		return wrapAPIError("delete playlist item", err)
	}

	c.logger.Debug("deleted playlist item", "id", itemID)
	return nil
}

// itemSnippet always sends position, including 0.
func itemSnippet(playlistID string, ref models.ResourceRef, position int) *youtube.PlaylistItemSnippet {
	kind := ref.Kind
	if kind == "" {
		kind = videoKind
	}
	return &youtube.PlaylistItemSnippet{
		PlaylistId:      playlistID,
		Position:        int64(position),
		ResourceId:      &youtube.ResourceId{Kind: kind, VideoId: ref.VideoID},
		ForceSendFields: []string{positionField},
	}
}

func toPlaylistItem(it *youtube.PlaylistItem, playlistID string) models.PlaylistItem {
	item := models.PlaylistItem{ID: it.Id, PlaylistID: playlistID}
	sn := it.Snippet
	if sn == nil {
		return item
	}

	item.Title = sn.Title
	item.Position = int(sn.Position)
	item.Thumbnail = thumbnailURL(sn.Thumbnails)
	item.ChannelID, item.ChannelTitle = sn.VideoOwnerChannelId, sn.VideoOwnerChannelTitle
	if item.ChannelID == "" {
		item.ChannelID, item.ChannelTitle = sn.ChannelId, sn.ChannelTitle
	}
	if sn.ResourceId != nil {
		item.Resource = models.ResourceRef{Kind: sn.ResourceId.Kind, VideoID: sn.ResourceId.VideoId}
	}
	return item
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

// wrapAPIError maps provider failures onto the shared sentinel errors.
func wrapAPIError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s: %s", shared.ErrTokenExpired, op, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s: %s", shared.ErrItemNotFound, op, gerr.Message)
		default:
			return fmt.Errorf("%w: %s (status %d): %s", shared.ErrAPIRequest, op, gerr.Code, gerr.Message)
		}
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrAPIRequest, op, err)
}
