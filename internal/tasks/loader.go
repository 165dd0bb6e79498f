package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/services"
	"github.com/desertthunder/ytdeck/internal/shared"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// LoaderOpts contains configuration for a [Loader].
type LoaderOpts struct {
	NumWorkers int          // Concurrent item fetches (default: 4, max: 10)
	Language   language.Tag // Collation for playlist titles (default: English)
	Logger     *log.Logger
}

// Loader fetches the user's playlists with their items and replaces the store contents.
type Loader struct {
	store   *playlists.Store
	catalog services.Catalog
	creds   Credentials
	opts    LoaderOpts
}

// NewLoader creates a Loader.
func NewLoader(store *playlists.Store, catalog services.Catalog, creds Credentials, opts LoaderOpts) *Loader {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	return &Loader{store: store, catalog: catalog, creds: creds, opts: opts}
}

type itemsResult struct {
	index int
	items []models.PlaylistItem
	err   error
}

// Load lists playlists in title order, fetches all items concurrently and replaces the store.
//
// The first playlist becomes active. A playlist whose items fail to load is kept empty.
// The store is untouched when the playlist listing itself fails.
func (l *Loader) Load(ctx context.Context, progress chan<- SyncUpdate) error {
	token, err := accessToken(ctx, l.creds)
	if err != nil {
		return err
	}

	sendProgress(progress, fetchPlaylistsUpdate())
	summaries, err := l.catalog.ListPlaylists(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}
	l.sortByTitle(summaries)

	loaded := make([]models.Playlist, len(summaries))
	for i, s := range summaries {
		loaded[i] = models.Playlist{ID: s.ID, Title: s.Title, Thumbnail: s.Thumbnail}
	}

	jobs := make(chan int, len(summaries))
	results := make(chan itemsResult, len(summaries))

	var wg sync.WaitGroup
	for range l.opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results <- itemsResult{index: i, err: ctx.Err()}
					continue
				}
				items, err := l.catalog.ListPlaylistItems(ctx, token, summaries[i].ID)
				results <- itemsResult{index: i, items: items, err: err}
			}
		}()
	}

	for i := range summaries {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		pl := &loaded[res.index]
		if res.err != nil {
			l.opts.Logger.Warn("failed to load playlist items", "playlist", pl.ID, "title", pl.Title, "error", res.err)
		} else {
			pl.Items = sortByPosition(res.items)
		}
		sendProgress(progress, fetchItemsUpdate(completed, len(summaries), pl.Title, res.err))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	l.store.Replace(loaded)
	l.opts.Logger.Info("loaded playlists", "count", len(loaded))
	return nil
}

func (l *Loader) sortByTitle(summaries []models.PlaylistSummary) {
	c := collate.New(l.opts.Language)
	sort.SliceStable(summaries, func(i, j int) bool {
		return c.CompareString(summaries[i].Title, summaries[j].Title) < 0
	})
}

func sortByPosition(items []models.PlaylistItem) []models.PlaylistItem {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items
}
