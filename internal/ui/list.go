package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytdeck/internal/models"
)

var (
	_ list.Item = playlistEntry{}
	_ list.Item = itemEntry{}
	_ list.Item = trashEntry{}
)

// playlistEntry wraps [models.Playlist] to implement [list.Item].
type playlistEntry struct {
	playlist models.Playlist
	active   bool
}

func (i playlistEntry) FilterValue() string { return i.playlist.Title }
func (i playlistEntry) Title() string {
	if i.active {
		return styles.playing.Render("▶ " + i.playlist.Title)
	}
	return i.playlist.Title
}
func (i playlistEntry) Description() string {
	return fmt.Sprintf("%d items • %s", len(i.playlist.Items), i.playlist.ID)
}

// itemEntry wraps [models.PlaylistItem] with its position and marks.
type itemEntry struct {
	item    models.PlaylistItem
	index   int
	playing bool
	grabbed bool
}

func (i itemEntry) FilterValue() string { return i.item.Title }
func (i itemEntry) Title() string {
	title := fmt.Sprintf("%d. %s", i.index+1, i.item.Title)
	switch {
	case i.grabbed:
		return styles.warn.Render("✥ " + title)
	case i.playing:
		return styles.playing.Render("▶ " + title)
	}
	return title
}
func (i itemEntry) Description() string {
	if i.item.ChannelTitle == "" {
		return i.item.Resource.VideoID
	}
	return fmt.Sprintf("%s • %s", i.item.ChannelTitle, i.item.Resource.VideoID)
}

// trashEntry wraps [models.TrashEntry] to implement [list.Item].
type trashEntry struct {
	entry *models.TrashEntry
}

func (i trashEntry) FilterValue() string { return i.entry.Item.Title }
func (i trashEntry) Title() string       { return i.entry.Item.Title }
func (i trashEntry) Description() string {
	return fmt.Sprintf("from %s at %d • %s", i.entry.PlaylistID, i.entry.Position+1, i.entry.CreatedAt().Format("Jan 2 15:04"))
}
