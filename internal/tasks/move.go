package tasks

import (
	"fmt"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// TrashID is the destination playlist id that means "remove from the source".
const TrashID = "trash"

// Location addresses one slot of a playlist.
type Location struct {
	PlaylistID string
	Index      int
}

func (l Location) String() string { return fmt.Sprintf("%s:%d", l.PlaylistID, l.Index) }

// Move is one drag-and-drop style request. A nil Destination means the drop landed nowhere.
type Move struct {
	Source      Location
	Destination *Location
}

// Noop reports whether the move has nothing to do.
func (m Move) Noop() bool {
	return m.Destination == nil || *m.Destination == m.Source
}

// Outcome is what a move transaction did locally.
type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeReordered
	OutcomeMoved
	OutcomeTrashed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReordered:
		return "reordered"
	case OutcomeMoved:
		return "moved"
	case OutcomeTrashed:
		return "trashed"
	default:
		return "noop"
	}
}

// plan is the result of applying a move locally: the remote writes to issue and the trashed entry, if any.
type plan struct {
	outcome Outcome
	item    models.PlaylistItem
	records []*models.SyncRecord
	trashed *models.TrashEntry
}

// applyLocal performs the structural change of m on p and adjusts the active play index.
//
// Play index adjustments are made before items are removed so that clamping never moves the playing item.
func applyLocal(p *playlists.Playlists, m Move, moveID string) (plan, error) {
	src, ok := p.Get(m.Source.PlaylistID)
	if !ok {
		return plan{}, fmt.Errorf("%w: unknown source playlist %s", shared.ErrInvalidMove, m.Source.PlaylistID)
	}
	item, ok := src.ItemAt(m.Source.Index)
	if !ok {
		return plan{}, fmt.Errorf("%w: no item at %s", shared.ErrInvalidMove, m.Source)
	}
	dst := *m.Destination

	switch {
	case dst.PlaylistID == TrashID:
		return trashLocal(p, src, item, m.Source, moveID)
	case dst.PlaylistID == src.ID:
		return reorderLocal(p, src, item, m.Source.Index, dst.Index, moveID)
	default:
		return crossLocal(p, src, item, m.Source.Index, dst, moveID)
	}
}

func trashLocal(p *playlists.Playlists, src *models.Playlist, item models.PlaylistItem, from Location, moveID string) (plan, error) {
	if p.IsActive(src.ID) && from.Index < src.Index {
		src.Index--
	}
	if _, err := p.Remove(src.ID, from.Index); err != nil {
		return plan{}, fmt.Errorf("%w: %v", shared.ErrInvalidMove, err)
	}

	return plan{
		outcome: OutcomeTrashed,
		item:    item,
		records: []*models.SyncRecord{
			models.NewSyncRecord(moveID, models.OpDelete, item.ID, src.ID, from.Index, item.Resource),
		},
		trashed: models.NewTrashEntry(item, src.ID, from.Index),
	}, nil
}

func reorderLocal(p *playlists.Playlists, pl *models.Playlist, item models.PlaylistItem, from, to int, moveID string) (plan, error) {
	if to < 0 || to >= len(pl.Items) {
		return plan{}, fmt.Errorf("%w: index %d out of range for %s", shared.ErrInvalidMove, to, pl.ID)
	}

	if p.IsActive(pl.ID) {
		pl.Index = reorderedIndex(pl.Index, from, to)
	}
	if err := p.Reorder(pl.ID, from, to); err != nil {
		return plan{}, fmt.Errorf("%w: %v", shared.ErrInvalidMove, err)
	}

	return plan{
		outcome: OutcomeReordered,
		item:    item,
		records: []*models.SyncRecord{
			models.NewSyncRecord(moveID, models.OpUpdate, item.ID, pl.ID, to, item.Resource),
		},
	}, nil
}

func crossLocal(p *playlists.Playlists, src *models.Playlist, item models.PlaylistItem, from int, to Location, moveID string) (plan, error) {
	dst, ok := p.Get(to.PlaylistID)
	if !ok {
		return plan{}, fmt.Errorf("%w: unknown destination playlist %s", shared.ErrInvalidMove, to.PlaylistID)
	}
	if to.Index < 0 || to.Index > len(dst.Items) {
		return plan{}, fmt.Errorf("%w: index %d out of range for %s", shared.ErrInvalidMove, to.Index, dst.ID)
	}

	playing := p.IsActiveAt(src.ID, from)
	srcActive := p.IsActive(src.ID)
	dstActive := p.IsActive(dst.ID) && len(dst.Items) > 0

	if srcActive && !playing && from < src.Index {
		src.Index--
	}
	if _, err := p.Remove(src.ID, from); err != nil {
		return plan{}, fmt.Errorf("%w: %v", shared.ErrInvalidMove, err)
	}
	if err := p.Insert(dst.ID, to.Index, item); err != nil {
		return plan{}, fmt.Errorf("%w: %v", shared.ErrInvalidMove, err)
	}

	switch {
	case playing:
		if err := p.SetActive(dst.ID); err != nil {
			return plan{}, err
		}
		dst.Index = to.Index
	case dstActive && to.Index <= dst.Index:
		dst.Index++
	}

	return plan{
		outcome: OutcomeMoved,
		item:    item,
		records: []*models.SyncRecord{
			models.NewSyncRecord(moveID, models.OpInsert, item.ID, dst.ID, to.Index, item.Resource),
			models.NewSyncRecord(moveID, models.OpDelete, item.ID, src.ID, from, item.Resource),
		},
	}, nil
}

// reorderedIndex returns where the item at play ends up after the item at from moves to to.
func reorderedIndex(play, from, to int) int {
	switch {
	case play == from:
		return to
	case from < play && play <= to:
		return play - 1
	case to <= play && play < from:
		return play + 1
	default:
		return play
	}
}
