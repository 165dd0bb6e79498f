package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/ytdeck/internal/formatter"
	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: ytdeck_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5)
	RateLimit  float64 // Playlists started per second, bounds cover downloads (default: 5)
	Covers     bool    // Download playlist thumbnails for markdown exports
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a [BulkExport] run.
type BulkExportResult struct {
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	Results           []PlaylistExportResult `json:"results"`
}

// BulkExport writes each playlist to opts.OutputDir concurrently with rate limiting and progress tracking,
// then writes an export_manifest.json summarizing the results.
//
// Playlists are exported as given; callers pass a store snapshot so the files reflect local edits.
func BulkExport(ctx context.Context, prog chan<- SyncUpdate, lists []models.Playlist, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytdeck_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(lists),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(lists)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan *models.Playlist, len(lists))
	results := make(chan PlaylistExportResult, len(lists))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i := range lists {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- &lists[i]
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(lists), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			res.ErrorMessage = res.Error.Error()
			sendProgress(prog, exportFailedUpdate(completed, len(lists), res.PlaylistName, res.Error))
		}
		result.Results = append(result.Results, res)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	data, err := shared.MarshalJSON(result, true)
	if err == nil {
		err = os.WriteFile(manifestPath, data, 0644)
	}
	if err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func exportWorker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan *models.Playlist, results chan<- PlaylistExportResult, opts BulkExportOpts) {
	defer wg.Done()

	for pl := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- ExportPlaylist(pl, opts.Format, opts.OutputDir, opts.Covers)
	}
}

// ExportPlaylist exports a single playlist to the given format under dir.
func ExportPlaylist(pl *models.Playlist, format, dir string, covers bool) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   pl.ID,
		PlaylistName: pl.Title,
		Files:        []string{},
	}

	switch format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(pl, filepath.Join(dir, pl.ID))
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.ItemsFile, csvRes.MetadataFile}

	case "markdown", "md":
		mdRes, err := formatter.WriteMarkdownExport(pl, filepath.Join(dir, pl.ID), covers)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case "txt":
		path, err := formatter.WriteTextExport(pl, filepath.Join(dir, pl.ID+"_items.txt"))
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	case "json", "":
		path, err := formatter.WriteJSONExport(pl, filepath.Join(dir, pl.ID+".json"))
		if err != nil {
			result.Error = err
			return result
		}
		result.Files = []string{path}

	default:
		result.Error = fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
		return result
	}

	result.Success = true
	return result
}
