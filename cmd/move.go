package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
	"github.com/desertthunder/ytdeck/internal/tasks"
	"github.com/urfave/cli/v3"
)

// parseLocation reads "PLAYLIST:N" with a 1-based position. The playlist part may be an id or a title
// and may itself contain colons. "trash" is returned as the trash target.
func parseLocation(p *playlists.Playlists, s string) (*tasks.Location, error) {
	if strings.EqualFold(s, tasks.TrashID) {
		return &tasks.Location{PlaylistID: tasks.TrashID}, nil
	}

	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return nil, fmt.Errorf("%w: location %q must look like PLAYLIST:POSITION", shared.ErrInvalidArgument, s)
	}

	pos, err := strconv.Atoi(s[i+1:])
	if err != nil || pos < 1 {
		return nil, fmt.Errorf("%w: position %q must be a number from 1", shared.ErrInvalidArgument, s[i+1:])
	}

	pl, err := resolvePlaylist(p, s[:i])
	if err != nil {
		return nil, err
	}
	return &tasks.Location{PlaylistID: pl.ID, Index: pos - 1}, nil
}

// Move applies one move locally, then waits for its remote writes and reports any that failed.
func (r *Runner) Move(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot()

	from, err := parseLocation(snap, cmd.String("from"))
	if err != nil {
		return err
	}
	if from.PlaylistID == tasks.TrashID {
		return fmt.Errorf("%w: cannot move out of the trash; use 'ytdeck trash restore'", shared.ErrInvalidMove)
	}

	var to *tasks.Location
	if dest := cmd.String("to"); dest != "" {
		if to, err = parseLocation(snap, dest); err != nil {
			return err
		}
	}

	before, err := s.journal.Counts()
	if err != nil {
		return err
	}

	outcome, err := s.engine.Apply(ctx, tasks.Move{Source: *from, Destination: to})
	if err != nil {
		return err
	}
	s.engine.Wait()

	after, err := s.journal.Counts()
	if err != nil {
		return err
	}

	r.writePlain("✓ %s\n", outcome)
	if failed := after[models.SyncFailed] - before[models.SyncFailed]; failed > 0 {
		r.writePlain("⚠ %d remote writes failed; run 'ytdeck sync retry'\n", failed)
	}
	return nil
}

// TrashList prints trashed items that have not been restored.
func (r *Runner) TrashList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.newSession()
	if err != nil {
		return err
	}

	criteria := map[string]any{"restored": false}
	if cmd.Bool("all") {
		criteria = map[string]any{}
	}
	entries, err := s.trash.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type row struct {
			ID         string     `json:"id"`
			Title      string     `json:"title"`
			VideoID    string     `json:"video_id"`
			PlaylistID string     `json:"playlist_id"`
			Position   int        `json:"position"`
			TrashedAt  time.Time  `json:"trashed_at"`
			RestoredAt *time.Time `json:"restored_at,omitempty"`
		}
		rows := make([]row, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, row{e.ID(), e.Item.Title, e.Item.Resource.VideoID, e.PlaylistID, e.Position + 1, e.CreatedAt(), e.RestoredAt})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	if len(entries) == 0 {
		r.writePlain("Trash is empty\n")
		return nil
	}
	r.writePlainHeader(fmt.Sprintf("Trash (%d)", len(entries)))
	for _, e := range entries {
		mark := " "
		if e.Restored() {
			mark = "↺"
		}
		r.writePlain("%s %s  %s (from %s:%d, %s)\n", mark, e.ID(), e.Item.Title, e.PlaylistID, e.Position+1, e.CreatedAt().Local().Format(time.DateTime))
	}
	return nil
}

// TrashRestore re-inserts a trashed item into the playlist it was removed from.
func (r *Runner) TrashRestore(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: trash entry id", shared.ErrMissingArgument)
	}

	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}

	entry, err := s.engine.Restore(ctx, id)
	if err != nil {
		return err
	}
	s.engine.Wait()

	r.writePlain("✓ Restored %q to %s\n", entry.Item.Title, entry.PlaylistID)
	return nil
}

// SyncStatus prints journal counts per status and the failed writes.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.newSession()
	if err != nil {
		return err
	}

	counts, err := s.journal.Counts()
	if err != nil {
		return err
	}
	failed, err := s.journal.List(map[string]any{"status": string(models.SyncFailed)})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"counts": counts, "failed": failed}, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Sync journal")
	for _, st := range []models.SyncStatus{models.SyncPending, models.SyncConfirmed, models.SyncFailed} {
		r.writePlain("%-10s %d\n", st, counts[st])
	}
	for _, rec := range failed {
		r.writePlain("  ✗ %s %s in %s (attempts %d): %s\n", rec.Op, rec.ItemID, rec.PlaylistID, rec.Attempts, rec.LastError)
	}
	return nil
}

// SyncRetry re-issues failed remote writes after loading the current playlists.
func (r *Runner) SyncRetry(ctx context.Context, cmd *cli.Command) error {
	s, err := r.loadSession(ctx)
	if err != nil {
		return err
	}

	result, err := s.engine.Retry(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	if result.Attempted == 0 {
		r.writePlain("Nothing to retry\n")
		return nil
	}
	r.writePlain("✓ Retried %d writes: %d confirmed, %d failed\n", result.Attempted, result.Confirmed, result.Failed)
	return nil
}

// SyncPurge deletes confirmed journal records older than --older-than.
func (r *Runner) SyncPurge(ctx context.Context, cmd *cli.Command) error {
	s, err := r.newSession()
	if err != nil {
		return err
	}

	n, err := s.journal.PurgeConfirmed(time.Now().Add(-cmd.Duration("older-than")))
	if err != nil {
		return err
	}
	r.writePlain("✓ Purged %d confirmed records\n", n)
	return nil
}
