package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
	tu "github.com/desertthunder/ytdeck/internal/testing"
)

func remotePlaylists() []models.Playlist {
	beta := playlist("PLb", 0, "b2", "b1")
	beta.Title = "beta"
	beta.Items[0].Position = 1
	beta.Items[1].Position = 0

	alpha := playlist("PLa", 0, "a1")
	alpha.Title = "Alpha"

	gamma := playlist("PLg", 0, "g1", "g2")
	gamma.Title = "Gamma"
	gamma.Items[1].Position = 1

	return []models.Playlist{beta, gamma, alpha}
}

func titles(p *playlists.Playlists) []string {
	var out []string
	for _, pl := range p.All() {
		out = append(out, pl.Title)
	}
	return out
}

func TestLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("Load sorts playlists and items", func(t *testing.T) {
		store := playlists.NewStore(nil)
		progress := make(chan SyncUpdate, 16)
		loader := NewLoader(store, tu.NewMockCatalog(remotePlaylists()...), StaticToken("tok"), LoaderOpts{NumWorkers: 2})

		if err := loader.Load(ctx, progress); err != nil {
			t.Fatalf("Load: %v", err)
		}

		snap := store.Snapshot()
		if got := titles(snap); !sameIDs(got, []string{"Alpha", "beta", "Gamma"}) {
			t.Errorf("expected locale title order, got %v", got)
		}
		if snap.ActiveID() != "PLa" {
			t.Errorf("expected the first playlist to be active, got %q", snap.ActiveID())
		}

		beta := snap.MustGet("PLb")
		if !sameIDs(itemIDs(beta), []string{"b1", "b2"}) {
			t.Errorf("expected items in position order, got %v", itemIDs(beta))
		}
		for _, it := range beta.Items {
			if it.PlaylistID != "PLb" {
				t.Errorf("expected item %s to be labelled PLb, got %q", it.ID, it.PlaylistID)
			}
		}

		var fetched int
		for len(progress) > 0 {
			if u := <-progress; u.Phase == FetchItems {
				fetched++
			}
		}
		if fetched != 3 {
			t.Errorf("expected 3 item fetch updates, got %d", fetched)
		}
	})

	t.Run("titles differing only in case", func(t *testing.T) {
		var remote []models.Playlist
		for i, title := range []string{"Banana", "Apple", "banana", "apple"} {
			pl := playlist(fmt.Sprintf("PL%d", i), 0)
			pl.Title = title
			remote = append(remote, pl)
		}
		store := playlists.NewStore(nil)
		loader := NewLoader(store, tu.NewMockCatalog(remote...), StaticToken("tok"), LoaderOpts{NumWorkers: 1})

		if err := loader.Load(ctx, nil); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got := titles(store.Snapshot()); !sameIDs(got, []string{"apple", "Apple", "banana", "Banana"}) {
			t.Errorf("expected lower case first within equal letters, got %v", got)
		}
	})

	t.Run("failed item fetch keeps the playlist empty", func(t *testing.T) {
		store := playlists.NewStore(nil)
		catalog := tu.NewMockCatalog(remotePlaylists()...)
		catalog.SetError("items:PLg", errors.New("boom"))

		if err := NewLoader(store, catalog, StaticToken("tok"), LoaderOpts{}).Load(ctx, nil); err != nil {
			t.Fatalf("Load: %v", err)
		}

		snap := store.Snapshot()
		if snap.Len() != 3 {
			t.Fatalf("expected 3 playlists, got %d", snap.Len())
		}
		if n := len(snap.MustGet("PLg").Items); n != 0 {
			t.Errorf("expected Gamma to be empty, got %d items", n)
		}
		if n := len(snap.MustGet("PLb").Items); n != 2 {
			t.Errorf("expected beta to keep its items, got %d", n)
		}
	})

	t.Run("listing failure leaves the store untouched", func(t *testing.T) {
		store := playlists.NewStore(fixture(t))
		catalog := tu.NewMockCatalog()
		catalog.SetError("list", shared.ErrAPIRequest)

		if err := NewLoader(store, catalog, StaticToken("tok"), LoaderOpts{}).Load(ctx, nil); !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if store.Snapshot().ActiveID() != "X" {
			t.Error("expected the previous contents to remain")
		}
	})

	t.Run("no token", func(t *testing.T) {
		store := playlists.NewStore(nil)
		if err := NewLoader(store, tu.NewMockCatalog(), StaticToken(""), LoaderOpts{}).Load(ctx, nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := playlists.NewStore(nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		if err := NewLoader(store, tu.NewMockCatalog(remotePlaylists()...), StaticToken("tok"), LoaderOpts{}).Load(cctx, nil); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if store.Snapshot().Len() != 0 {
			t.Error("expected the store to stay empty")
		}
	})
}
