package models

// ResourceRef identifies the playable resource behind a playlist item. It is stable across playlists.
type ResourceRef struct {
	Kind    string `json:"kind"`
	VideoID string `json:"videoId"`
}

// PlaylistItem is one membership record linking a video to a playlist.
//
// ID belongs to the membership, not the video: the same video in two playlists has two item ids.
// Position is the provider's index at fetch time and goes stale after local reordering.
// PlaylistID labels the owning playlist; the playlist's Items slice is what actually orders it.
type PlaylistItem struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Thumbnail    string      `json:"thumbnail"`
	ChannelID    string      `json:"channelId"`
	ChannelTitle string      `json:"channelTitle"`
	Position     int         `json:"position"`
	Resource     ResourceRef `json:"resourceId"`
	PlaylistID   string      `json:"playlistId"`
}

// Playlist is an ordered, playable collection of items.
//
// Index is the remembered play position for this playlist and survives while another playlist is active.
type Playlist struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Thumbnail string         `json:"thumbnail"`
	Items     []PlaylistItem `json:"items"`
	Index     int            `json:"index"`
}

// PlaylistSummary is the metadata returned when listing the user's playlists.
type PlaylistSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// Clone returns a deep copy of the playlist.
func (p Playlist) Clone() Playlist {
	c := p
	if p.Items != nil {
		c.Items = make([]PlaylistItem, len(p.Items))
		copy(c.Items, p.Items)
	}
	return c
}

// ItemAt returns the item at i, reporting false when i is out of range.
func (p *Playlist) ItemAt(i int) (PlaylistItem, bool) {
	if i < 0 || i >= len(p.Items) {
		return PlaylistItem{}, false
	}
	return p.Items[i], true
}

// IndexOf returns the position of the item with the given membership id, or -1.
func (p *Playlist) IndexOf(itemID string) int {
	for i, item := range p.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}
