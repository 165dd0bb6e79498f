package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/repositories"
	"github.com/desertthunder/ytdeck/internal/shared"
	tu "github.com/desertthunder/ytdeck/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

type fixture struct {
	runner  *Runner
	catalog *tu.MockCatalog
	out     *bytes.Buffer
	copied  string
}

func newFixture(t *testing.T, authenticated bool) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if authenticated {
		if err := repositories.NewTokenRepository(db, tokenProvider).Save(&oauth2.Token{AccessToken: "token", RefreshToken: "refresh"}); err != nil {
			t.Fatalf("failed to save token: %v", err)
		}
	}

	item := func(id string, pos int) models.PlaylistItem {
		return models.PlaylistItem{ID: id, Title: "Song " + id, Position: pos, Resource: models.ResourceRef{Kind: "youtube#video", VideoID: "v" + id}}
	}
	catalog := tu.NewMockCatalog(
		models.Playlist{ID: "PL1", Title: "Road Trip", Items: []models.PlaylistItem{item("a", 0), item("b", 1), item("c", 2)}},
		models.Playlist{ID: "PL2", Title: "Focus", Items: []models.PlaylistItem{item("d", 0)}},
	)

	f := &fixture{catalog: catalog, out: &bytes.Buffer{}}
	f.runner = NewRunner(RunnerOpts{
		Catalog: catalog,
		DB:      db,
		Output:  f.out,
		Logger:  shared.DiscardLogger(),
		HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("")),
		}, nil)},
		Copy: func(s string) error {
			f.copied = s
			return nil
		},
	})
	return f
}

// run executes args against a fresh command tree and returns what was printed.
func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	f.out.Reset()

	app := &cli.Command{
		Name:      "ytdeck",
		Commands:  f.runner.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	err := app.Run(context.Background(), append([]string{"ytdeck"}, args...))
	return f.out.String(), err
}

func TestPlaylistsCommands(t *testing.T) {
	t.Run("list as JSON in title order", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "playlists", "list", "--json")
		if err != nil {
			t.Fatalf("playlists list: %v", err)
		}

		var rows []struct {
			ID    string `json:"id"`
			Items int    `json:"items"`
			URL   string `json:"url"`
		}
		if err := json.Unmarshal([]byte(out), &rows); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(rows) != 2 || rows[0].ID != "PL2" || rows[1].ID != "PL1" {
			t.Fatalf("expected Focus then Road Trip, got %+v", rows)
		}
		if rows[1].Items != 3 || rows[1].URL != shared.PlaylistURL("PL1") {
			t.Errorf("unexpected row %+v", rows[1])
		}
	})

	t.Run("show resolves a fuzzy title", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "playlists", "show", "roadtr")
		if err != nil {
			t.Fatalf("playlists show: %v", err)
		}
		for _, want := range []string{"Road Trip", "1. Song a", "3. Song c"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("show unknown playlist", func(t *testing.T) {
		f := newFixture(t, true)

		if _, err := f.run(t, "playlists", "show", "zzz"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("export selected playlists", func(t *testing.T) {
		f := newFixture(t, true)
		dir := filepath.Join(t.TempDir(), "out")

		out, err := f.run(t, "playlists", "export", "--format", "csv", "--output", dir, "Focus")
		if err != nil {
			t.Fatalf("playlists export: %v", err)
		}
		if !strings.Contains(out, "Exported 1/1") {
			t.Errorf("expected summary, got %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		f := newFixture(t, true)

		if _, err := f.run(t, "playlists", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("requires a stored token", func(t *testing.T) {
		f := newFixture(t, false)

		if _, err := f.run(t, "playlists", "list"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestMoveCommand(t *testing.T) {
	t.Run("reorder within a playlist", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "move", "--from", "Road Trip:1", "--to", "Road Trip:3")
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if !strings.Contains(out, "reordered") {
			t.Errorf("expected reordered, got %q", out)
		}

		calls := f.catalog.Calls()
		if len(calls) != 1 || calls[0].Op != "update" || calls[0].ItemID != "a" || calls[0].Position != 2 {
			t.Errorf("expected one update of a to 2, got %+v", calls)
		}
	})

	t.Run("across playlists", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "move", "--from", "PL1:2", "--to", "Focus:1")
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if !strings.Contains(out, "moved") {
			t.Errorf("expected moved, got %q", out)
		}
		if ops := strings.Join(f.catalog.Ops(), ","); ops != "insert,delete" {
			t.Errorf("expected insert then delete, got %s", ops)
		}
	})

	t.Run("same position is a noop", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "move", "--from", "PL1:2", "--to", "PL1:2")
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if !strings.Contains(out, "noop") || len(f.catalog.Calls()) != 0 {
			t.Errorf("expected noop without writes, got %q %v", out, f.catalog.Ops())
		}
	})

	t.Run("reports failed writes", func(t *testing.T) {
		f := newFixture(t, true)
		f.catalog.SetError("update", shared.ErrServiceUnavailable)

		out, err := f.run(t, "move", "--from", "PL1:1", "--to", "PL1:2")
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if !strings.Contains(out, "1 remote writes failed") {
			t.Errorf("expected failure notice, got %q", out)
		}
	})

	t.Run("invalid locations", func(t *testing.T) {
		f := newFixture(t, true)

		if _, err := f.run(t, "move", "--from", "PL1", "--to", "PL1:2"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.run(t, "move", "--from", "trash", "--to", "PL1:2"); !errors.Is(err, shared.ErrInvalidMove) {
			t.Errorf("expected ErrInvalidMove, got %v", err)
		}
		if _, err := f.run(t, "move", "--from", "PL1:9", "--to", "PL1:1"); err == nil {
			t.Error("expected an out of range source to fail")
		}
	})
}

func TestTrashAndSyncCommands(t *testing.T) {
	t.Run("trash, list and restore", func(t *testing.T) {
		f := newFixture(t, true)

		if out, err := f.run(t, "move", "--from", "Road Trip:2", "--to", "trash"); err != nil || !strings.Contains(out, "trashed") {
			t.Fatalf("expected trashed, got %q (%v)", out, err)
		}

		out, err := f.run(t, "trash", "list", "--json")
		if err != nil {
			t.Fatalf("trash list: %v", err)
		}
		var entries []struct {
			ID       string `json:"id"`
			VideoID  string `json:"video_id"`
			Position int    `json:"position"`
		}
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(entries) != 1 || entries[0].VideoID != "vb" || entries[0].Position != 2 {
			t.Fatalf("unexpected trash %+v", entries)
		}

		out, err = f.run(t, "trash", "restore", entries[0].ID)
		if err != nil {
			t.Fatalf("trash restore: %v", err)
		}
		if !strings.Contains(out, `Restored "Song b"`) {
			t.Errorf("expected restore message, got %q", out)
		}
		if ops := strings.Join(f.catalog.Ops(), ","); ops != "delete,insert" {
			t.Errorf("expected delete then insert, got %s", ops)
		}

		if out, _ := f.run(t, "trash", "list"); !strings.Contains(out, "Trash is empty") {
			t.Errorf("expected empty trash, got %q", out)
		}
		if out, _ := f.run(t, "trash", "list", "--all"); !strings.Contains(out, "Song b") {
			t.Errorf("expected restored entry with --all, got %q", out)
		}
	})

	t.Run("restore unknown entry", func(t *testing.T) {
		f := newFixture(t, true)

		if _, err := f.run(t, "trash", "restore", "missing"); !errors.Is(err, shared.ErrTrashNotFound) {
			t.Errorf("expected ErrTrashNotFound, got %v", err)
		}
	})

	t.Run("status and retry", func(t *testing.T) {
		f := newFixture(t, true)
		f.catalog.SetError("update", shared.ErrServiceUnavailable)

		if _, err := f.run(t, "move", "--from", "PL1:1", "--to", "PL1:3"); err != nil {
			t.Fatalf("move: %v", err)
		}

		out, err := f.run(t, "sync", "status")
		if err != nil {
			t.Fatalf("sync status: %v", err)
		}
		if !strings.Contains(out, "failed     1") {
			t.Errorf("expected one failed record, got:\n%s", out)
		}

		f.catalog.SetError("update", nil)
		out, err = f.run(t, "sync", "retry")
		if err != nil {
			t.Fatalf("sync retry: %v", err)
		}
		if !strings.Contains(out, "Retried 1 writes: 1 confirmed, 0 failed") {
			t.Errorf("unexpected retry output %q", out)
		}

		if out, _ := f.run(t, "sync", "retry"); !strings.Contains(out, "Nothing to retry") {
			t.Errorf("expected nothing left, got %q", out)
		}
	})

	t.Run("purge keeps recent records", func(t *testing.T) {
		f := newFixture(t, true)

		if _, err := f.run(t, "move", "--from", "PL1:1", "--to", "PL1:3"); err != nil {
			t.Fatalf("move: %v", err)
		}
		if out, err := f.run(t, "sync", "purge"); err != nil || !strings.Contains(out, "Purged 0") {
			t.Errorf("expected nothing purged, got %q (%v)", out, err)
		}
		if out, err := f.run(t, "sync", "purge", "--older-than", "0s"); err != nil || !strings.Contains(out, "Purged 1") {
			t.Errorf("expected one purged, got %q (%v)", out, err)
		}
	})
}

func TestURLCommand(t *testing.T) {
	t.Run("active playlist by default", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "url")
		if err != nil {
			t.Fatalf("url: %v", err)
		}
		if strings.TrimSpace(out) != shared.PlaylistURL("PL2") {
			t.Errorf("expected the first playlist's URL, got %q", out)
		}
		if f.copied != "" {
			t.Error("expected nothing copied without --copy")
		}
	})

	t.Run("copy", func(t *testing.T) {
		f := newFixture(t, true)

		if _, err := f.run(t, "url", "--copy", "road trip"); err != nil {
			t.Fatalf("url: %v", err)
		}
		if f.copied != shared.PlaylistURL("PL1") {
			t.Errorf("expected PL1 URL copied, got %q", f.copied)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status, logout, status", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "auth", "status")
		if err != nil || !strings.Contains(out, "Authenticated") || !strings.Contains(out, "Refresh token stored") {
			t.Fatalf("unexpected status %q (%v)", out, err)
		}

		if out, err := f.run(t, "auth", "logout"); err != nil || !strings.Contains(out, "Logged out") {
			t.Fatalf("unexpected logout %q (%v)", out, err)
		}

		if out, _ := f.run(t, "auth", "status"); !strings.Contains(out, "Not authenticated") {
			t.Errorf("expected not authenticated, got %q", out)
		}
		if out, _ := f.run(t, "auth", "logout"); !strings.Contains(out, "Not logged in") {
			t.Errorf("expected not logged in, got %q", out)
		}
	})

	t.Run("status as JSON", func(t *testing.T) {
		f := newFixture(t, true)

		out, err := f.run(t, "auth", "status", "--json")
		if err != nil {
			t.Fatalf("auth status: %v", err)
		}
		var status map[string]any
		if err := json.Unmarshal([]byte(out), &status); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if status["valid"] != true || status["refreshable"] != true {
			t.Errorf("unexpected status %v", status)
		}
	})

	t.Run("login requires client credentials", func(t *testing.T) {
		f := newFixture(t, true)
		f.runner.config.Credentials.YouTube.ClientID = ""

		if _, err := f.run(t, "auth", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	f := newFixture(t, false)
	config := filepath.Join(dir, "config.toml")

	if _, err := f.run(t, "setup", "config", "--config", config); err != nil {
		t.Fatalf("setup config: %v", err)
	}
	tu.AssertFileExists(t, config)

	if _, err := f.run(t, "setup", "config", "--config", config); err == nil {
		t.Error("expected an existing config to be kept")
	}

	if _, err := f.run(t, "setup", "database", "--config", config); err != nil {
		t.Fatalf("setup database: %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "ytdeck.db"))

	if _, err := os.Stat(filepath.Join(dir, "config.toml")); err != nil {
		t.Errorf("expected config to remain: %v", err)
	}
}
