package models

import (
	"fmt"
	"time"
)

// TrashEntry is an item removed through the trash target.
//
// The remote delete is real; the entry keeps enough to re-insert the video later as a new membership.
type TrashEntry struct {
	id         string
	Item       PlaylistItem
	PlaylistID string
	Position   int
	createdAt  time.Time
	RestoredAt *time.Time
}

// NewTrashEntry records item as removed from playlistID at position.
func NewTrashEntry(item PlaylistItem, playlistID string, position int) *TrashEntry {
	return &TrashEntry{
		Item:       item,
		PlaylistID: playlistID,
		Position:   position,
		createdAt:  time.Now(),
	}
}

func (e *TrashEntry) ID() string           { return e.id }
func (e *TrashEntry) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt is the restore time when restored, else the creation time.
func (e *TrashEntry) UpdatedAt() time.Time {
	if e.RestoredAt != nil {
		return *e.RestoredAt
	}
	return e.createdAt
}

func (e *TrashEntry) SetID(id string)          { e.id = id }
func (e *TrashEntry) SetCreatedAt(t time.Time) { e.createdAt = t }

// Restored reports whether the entry has been put back into a playlist.
func (e *TrashEntry) Restored() bool { return e.RestoredAt != nil }

// MarkRestored stamps the entry with the current time.
func (e *TrashEntry) MarkRestored() {
	now := time.Now()
	e.RestoredAt = &now
}

// Validate checks that the entry can be restored.
func (e *TrashEntry) Validate() error {
	if e.PlaylistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if e.Item.Resource.VideoID == "" {
		return fmt.Errorf("video id is required")
	}
	if e.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	return nil
}
