package main

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/desertthunder/ytdeck/internal/tasks"
	tu "github.com/desertthunder/ytdeck/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := tu.NewMockCatalog()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil catalog builds the YouTube client", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.catalog == nil {
				t.Error("expected a default catalog")
			}
			if runner.copy == nil {
				t.Error("expected a default clipboard writer")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("done"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\ndone\n" {
				t.Errorf("expected %q, got %q", "\ndone\n", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
				continue
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "playlists", "move", "trash", "sync", "url", "play"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("database is opened once", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = shared.MemoryDSN
		runner := NewRunner(RunnerOpts{Config: config, Catalog: tu.NewMockCatalog()})
		defer runner.Close()

		first, err := runner.database()
		if err != nil {
			t.Fatalf("database: %v", err)
		}
		second, err := runner.database()
		if err != nil {
			t.Fatalf("database: %v", err)
		}
		if first != second {
			t.Error("expected the same handle")
		}

		if err := runner.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
		if err := runner.Close(); err != nil {
			t.Errorf("second Close should be a no-op, got %v", err)
		}
	})
}

func testPlaylists() *playlists.Playlists {
	item := func(id string) models.PlaylistItem {
		return models.PlaylistItem{ID: id, Title: id, Resource: models.ResourceRef{Kind: "youtube#video", VideoID: "v" + id}}
	}
	return playlists.New([]models.Playlist{
		{ID: "PL1", Title: "Road Trip", Items: []models.PlaylistItem{item("a"), item("b")}},
		{ID: "PL2", Title: "Focus: Deep Work", Items: []models.PlaylistItem{item("c")}},
		{ID: "PL3", Title: "road", Items: nil},
	})
}

func TestResolvePlaylist(t *testing.T) {
	p := testPlaylists()

	tests := []struct {
		name  string
		query string
		want  string
		err   error
	}{
		{name: "by id", query: "PL2", want: "PL2"},
		{name: "exact title ignores case", query: "ROAD", want: "PL3"},
		{name: "fuzzy title", query: "rdtrp", want: "PL1"},
		{name: "fuzzy with colon", query: "deep", want: "PL2"},
		{name: "no match", query: "zzz", err: shared.ErrPlaylistNotFound},
		{name: "empty", query: "", err: shared.ErrMissingArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl, err := resolvePlaylist(p, tt.query)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pl.ID != tt.want {
				t.Errorf("expected %s, got %s", tt.want, pl.ID)
			}
		})
	}
}

func TestParseLocation(t *testing.T) {
	p := testPlaylists()

	tests := []struct {
		name  string
		input string
		want  tasks.Location
		err   error
	}{
		{name: "title and position", input: "Road Trip:2", want: tasks.Location{PlaylistID: "PL1", Index: 1}},
		{name: "id", input: "PL2:1", want: tasks.Location{PlaylistID: "PL2", Index: 0}},
		{name: "title containing a colon", input: "Focus: Deep Work:1", want: tasks.Location{PlaylistID: "PL2", Index: 0}},
		{name: "trash", input: "Trash", want: tasks.Location{PlaylistID: tasks.TrashID}},
		{name: "past the end is left to the engine", input: "PL1:9", want: tasks.Location{PlaylistID: "PL1", Index: 8}},
		{name: "missing position", input: "Road Trip", err: shared.ErrInvalidArgument},
		{name: "empty position", input: "PL1:", err: shared.ErrInvalidArgument},
		{name: "zero position", input: "PL1:0", err: shared.ErrInvalidArgument},
		{name: "not a number", input: "PL1:two", err: shared.ErrInvalidArgument},
		{name: "unknown playlist", input: "Nope:1", err: shared.ErrPlaylistNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := parseLocation(p, tt.input)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *loc != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *loc)
			}
		})
	}
}
