package playlists

import (
	"fmt"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// Playlists is the playlist aggregate: the playlists in display order and the active playlist id.
type Playlists struct {
	items    []models.Playlist
	activeID string
}

// New builds an aggregate from items with no active playlist.
//
// Item back-references are rewritten to their owning playlist and play indexes are clamped.
func New(items []models.Playlist) *Playlists {
	p := &Playlists{items: make([]models.Playlist, len(items))}
	for i, pl := range items {
		pl = pl.Clone()
		for j := range pl.Items {
			pl.Items[j].PlaylistID = pl.ID
		}
		pl.Index = clampIndex(pl.Index, len(pl.Items))
		p.items[i] = pl
	}
	return p
}

// Len returns the number of playlists.
func (p *Playlists) Len() int { return len(p.items) }

// All returns the playlists in display order. The slice aliases the aggregate; treat it as read-only.
func (p *Playlists) All() []models.Playlist { return p.items }

// Get looks up a playlist by id.
func (p *Playlists) Get(id string) (*models.Playlist, bool) {
	for i := range p.items {
		if p.items[i].ID == id {
			return &p.items[i], true
		}
	}
	return nil, false
}

// MustGet looks up a playlist that is known to exist and panics otherwise.
func (p *Playlists) MustGet(id string) *models.Playlist {
	pl, ok := p.Get(id)
	if !ok {
		panic(fmt.Sprintf("playlists: no playlist with id %q", id))
	}
	return pl
}

// Exists reports whether a playlist with id is present.
func (p *Playlists) Exists(id string) bool {
	_, ok := p.Get(id)
	return ok
}

// ActiveID returns the active playlist id, or "" when none is selected.
func (p *Playlists) ActiveID() string { return p.activeID }

// Active resolves the active playlist.
func (p *Playlists) Active() (*models.Playlist, bool) {
	if p.activeID == "" {
		return nil, false
	}
	return p.Get(p.activeID)
}

// ActiveItem returns the item at the active playlist's play index.
func (p *Playlists) ActiveItem() (models.PlaylistItem, bool) {
	pl, ok := p.Active()
	if !ok {
		return models.PlaylistItem{}, false
	}
	return pl.ItemAt(pl.Index)
}

// SetActive selects the playlist with id. The playlist's play index is left alone.
func (p *Playlists) SetActive(id string) error {
	if !p.Exists(id) {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	p.activeID = id
	return nil
}

// ClearActive deselects the active playlist.
func (p *Playlists) ClearActive() { p.activeID = "" }

// SetActiveIndex sets the play index of the active playlist. It is a no-op when nothing is active.
func (p *Playlists) SetActiveIndex(i int) {
	if pl, ok := p.Active(); ok {
		pl.Index = clampIndex(i, len(pl.Items))
	}
}

// SetIndex sets the play index of the playlist with id.
func (p *Playlists) SetIndex(id string, i int) error {
	pl, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	pl.Index = clampIndex(i, len(pl.Items))
	return nil
}

// IsActive reports whether id is the active playlist.
func (p *Playlists) IsActive(id string) bool {
	return p.activeID != "" && p.activeID == id
}

// IsActiveAt reports whether id is active and its play index is i.
func (p *Playlists) IsActiveAt(id string, i int) bool {
	if !p.IsActive(id) {
		return false
	}
	pl, ok := p.Active()
	return ok && pl.Index == i
}

// Snapshot returns a deep copy that shares nothing with the aggregate.
func (p *Playlists) Snapshot() *Playlists {
	c := &Playlists{activeID: p.activeID, items: make([]models.Playlist, len(p.items))}
	for i, pl := range p.items {
		c.items[i] = pl.Clone()
	}
	return c
}

// FindItem locates an item by membership id.
func (p *Playlists) FindItem(itemID string) (playlistID string, index int, ok bool) {
	for _, pl := range p.items {
		if i := pl.IndexOf(itemID); i >= 0 {
			return pl.ID, i, true
		}
	}
	return "", -1, false
}

// ReplaceItemID swaps an item's membership id, e.g. after the provider assigned one to an insert.
func (p *Playlists) ReplaceItemID(oldID, newID string) bool {
	for i := range p.items {
		if j := p.items[i].IndexOf(oldID); j >= 0 {
			p.items[i].Items[j].ID = newID
			return true
		}
	}
	return false
}

// Remove takes the item at index out of playlist id and returns it.
//
// The playlist's play index is clamped afterwards; callers that need to keep the playing item in place adjust it before removing.
func (p *Playlists) Remove(id string, index int) (models.PlaylistItem, error) {
	pl, ok := p.Get(id)
	if !ok {
		return models.PlaylistItem{}, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	item, ok := pl.ItemAt(index)
	if !ok {
		return models.PlaylistItem{}, fmt.Errorf("%w: %d in %s", shared.ErrIndexOutRange, index, id)
	}

	pl.Items = append(pl.Items[:index], pl.Items[index+1:]...)
	pl.Index = clampIndex(pl.Index, len(pl.Items))
	return item, nil
}

// Insert places item at index in playlist id and relabels it with that playlist.
//
// index may equal len(items) to append.
func (p *Playlists) Insert(id string, index int, item models.PlaylistItem) error {
	pl, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if index < 0 || index > len(pl.Items) {
		return fmt.Errorf("%w: %d in %s", shared.ErrIndexOutRange, index, id)
	}

	item.PlaylistID = pl.ID
	pl.Items = append(pl.Items, models.PlaylistItem{})
	copy(pl.Items[index+1:], pl.Items[index:])
	pl.Items[index] = item
	return nil
}

// Reorder moves the item at from to position to within one playlist.
//
// It is a rotation of the range between the two indexes, so to is the item's final position.
func (p *Playlists) Reorder(id string, from, to int) error {
	pl, ok := p.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	n := len(pl.Items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: %d -> %d in %s", shared.ErrIndexOutRange, from, to, id)
	}

	moved := pl.Items[from]
	if from < to {
		copy(pl.Items[from:to], pl.Items[from+1:to+1])
	} else {
		copy(pl.Items[to+1:from+1], pl.Items[to:from])
	}
	pl.Items[to] = moved
	return nil
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
