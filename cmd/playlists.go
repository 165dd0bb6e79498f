package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/desertthunder/ytdeck/internal/tasks"
	"github.com/sahilm/fuzzy"
	"github.com/urfave/cli/v3"
)

// resolvePlaylist finds a playlist by id, then case-insensitive title, then the best fuzzy title match.
func resolvePlaylist(p *playlists.Playlists, query string) (*models.Playlist, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: playlist", shared.ErrMissingArgument)
	}
	if pl, ok := p.Get(query); ok {
		return pl, nil
	}

	all := p.All()
	titles := make([]string, len(all))
	for i := range all {
		if strings.EqualFold(all[i].Title, query) {
			return &all[i], nil
		}
		titles[i] = all[i].Title
	}

	matches := fuzzy.Find(query, titles)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", shared.ErrPlaylistNotFound, query)
	}
	return &all[matches[0].Index], nil
}

// PlaylistsList prints the user's playlists with their item counts.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot()

	if cmd.Bool("json") {
		type row struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Items int    `json:"items"`
			URL   string `json:"url"`
		}
		rows := make([]row, 0, snap.Len())
		for _, pl := range snap.All() {
			rows = append(rows, row{ID: pl.ID, Title: pl.Title, Items: len(pl.Items), URL: shared.PlaylistURL(pl.ID)})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", snap.Len()))
	for i, pl := range snap.All() {
		r.writePlain("%3d. %-40s %4d items  %s\n", i+1, pl.Title, len(pl.Items), pl.ID)
	}
	return nil
}

// PlaylistsShow prints one playlist's items with 1-based positions.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}

	pl, err := resolvePlaylist(s.store.Snapshot(), cmd.StringArg("playlist"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(pl, cmd.Bool("pretty"))
	}

	r.writePlainHeader(pl.Title)
	r.writePlain("%s\n\n", shared.PlaylistURL(pl.ID))
	for i, it := range pl.Items {
		r.writePlain("%3d. %s", i+1, it.Title)
		if it.ChannelTitle != "" {
			r.writePlain(" · %s", it.ChannelTitle)
		}
		r.writePlain("\n")
	}
	return nil
}

// PlaylistsExport writes playlists to disk in the requested format.
//
// With no arguments every playlist is exported.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if format == "md" {
		format = "markdown"
	}
	switch format {
	case "json", "csv", "markdown", "txt":
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}

	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot()

	var lists []models.Playlist
	if names := cmd.StringArgs("playlists"); len(names) > 0 {
		for _, name := range names {
			pl, err := resolvePlaylist(snap, name)
			if err != nil {
				return err
			}
			lists = append(lists, pl.Clone())
		}
	} else {
		for _, pl := range snap.All() {
			lists = append(lists, pl.Clone())
		}
	}

	progress := make(chan tasks.SyncUpdate, len(lists)+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			if u.Err != nil {
				r.logger.Warn(u.Message, "error", u.Err)
			} else {
				r.logger.Debug(u.Message, "step", u.Step, "total", u.Total)
			}
		}
	}()

	result, err := tasks.BulkExport(ctx, progress, lists, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		Covers:     cmd.Bool("covers"),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Exported %d/%d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	for _, res := range result.Results {
		if !res.Success {
			r.writePlain("  ✗ %s: %s\n", res.PlaylistName, res.ErrorMessage)
		}
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	return nil
}

// URL prints, and optionally copies, the share URL of a playlist.
//
// Without an argument the first playlist, which is active after a load, is used.
func (r *Runner) URL(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot()

	var pl *models.Playlist
	if name := cmd.StringArg("playlist"); name != "" {
		if pl, err = resolvePlaylist(snap, name); err != nil {
			return err
		}
	} else if active, ok := snap.Active(); ok {
		pl = active
	} else {
		return fmt.Errorf("%w: no playlists", shared.ErrPlaylistNotFound)
	}

	url := shared.PlaylistURL(pl.ID)
	if cmd.Bool("copy") {
		if err := r.copy(url); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		r.logger.Info("copied to clipboard", "playlist", pl.Title)
	}
	return r.writePlain("%s\n", url)
}
