package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
)

func exportLists(n int) []models.Playlist {
	lists := make([]models.Playlist, n)
	for i := range n {
		pl := playlist(fmt.Sprintf("playlist%d", i+1), 0, fmt.Sprintf("i%d-1", i), fmt.Sprintf("i%d-2", i))
		pl.Title = fmt.Sprintf("Playlist %d", i+1)
		lists[i] = pl
	}
	return lists
}

func TestBulkExport(t *testing.T) {
	tests := []struct {
		name          string
		format        string
		playlistCount int
		wantFiles     int
		wantFailed    int
	}{
		{name: "single playlist json export", format: "json", playlistCount: 1, wantFiles: 1},
		{name: "multiple playlists csv export", format: "csv", playlistCount: 3, wantFiles: 2},
		{name: "text export", format: "txt", playlistCount: 2, wantFiles: 1},
		{name: "markdown export", format: "markdown", playlistCount: 2, wantFiles: 1},
		{name: "unknown format", format: "xml", playlistCount: 2, wantFailed: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			progress := make(chan SyncUpdate, 16)

			result, err := BulkExport(context.Background(), progress, exportLists(tt.playlistCount), BulkExportOpts{
				Format:     tt.format,
				OutputDir:  dir,
				NumWorkers: 2,
				RateLimit:  100,
			})
			if err != nil {
				t.Fatalf("BulkExport: %v", err)
			}

			if result.TotalPlaylists != tt.playlistCount {
				t.Errorf("expected %d playlists, got %d", tt.playlistCount, result.TotalPlaylists)
			}
			if result.FailedExports != tt.wantFailed {
				t.Errorf("expected %d failures, got %d", tt.wantFailed, result.FailedExports)
			}
			if result.SuccessfulExports != tt.playlistCount-tt.wantFailed {
				t.Errorf("expected %d successes, got %d", tt.playlistCount-tt.wantFailed, result.SuccessfulExports)
			}

			for _, res := range result.Results {
				if !res.Success {
					if !errors.Is(res.Error, shared.ErrInvalidArgument) || res.ErrorMessage == "" {
						t.Errorf("unexpected failure %v (%q)", res.Error, res.ErrorMessage)
					}
					continue
				}
				if len(res.Files) != tt.wantFiles {
					t.Errorf("expected %d files for %s, got %d", tt.wantFiles, res.PlaylistID, len(res.Files))
				}
				for _, f := range res.Files {
					if _, err := os.Stat(f); err != nil {
						t.Errorf("expected %s to exist: %v", f, err)
					}
				}
			}

			if len(progress) != tt.playlistCount {
				t.Errorf("expected %d progress updates, got %d", tt.playlistCount, len(progress))
			}

			data, err := os.ReadFile(filepath.Join(dir, "export_manifest.json"))
			if err != nil {
				t.Fatalf("failed to read manifest: %v", err)
			}
			var manifest BulkExportResult
			if err := json.Unmarshal(data, &manifest); err != nil {
				t.Fatalf("invalid manifest: %v", err)
			}
			if manifest.TotalPlaylists != tt.playlistCount || len(manifest.Results) != tt.playlistCount {
				t.Errorf("unexpected manifest %+v", manifest)
			}
		})
	}

	t.Run("json export carries local order", func(t *testing.T) {
		dir := t.TempDir()
		pl := playlist("PL1", 1, "b", "a")

		res := ExportPlaylist(&pl, "json", dir, false)
		if !res.Success {
			t.Fatalf("export failed: %v", res.Error)
		}

		data, err := os.ReadFile(res.Files[0])
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}
		var got models.Playlist
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid export: %v", err)
		}
		if !sameIDs(itemIDs(&got), []string{"b", "a"}) {
			t.Errorf("expected [b a], got %v", itemIDs(&got))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := BulkExport(ctx, nil, exportLists(3), BulkExportOpts{Format: "json", OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("default output directory", func(t *testing.T) {
		wd, _ := os.Getwd()
		t.Cleanup(func() { os.Chdir(wd) })
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatalf("chdir: %v", err)
		}

		result, err := BulkExport(context.Background(), nil, exportLists(1), BulkExportOpts{Format: "txt"})
		if err != nil {
			t.Fatalf("BulkExport: %v", err)
		}
		if !strings.HasPrefix(result.OutputDirectory, "ytdeck_export_") {
			t.Errorf("unexpected output directory %s", result.OutputDirectory)
		}
	})
}
