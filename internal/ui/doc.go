// Package ui implements the interactive deck using bubbletea's Elm architecture.
//
// Three views share one [Model]:
//  1. [PlaylistView] : the user's playlists, active one marked
//  2. [ItemView] : the items of one playlist, playing item marked
//  3. [TrashView] : trashed items that can be restored
//
// Moves are keyboard drag and drop: m grabs the highlighted item, m again drops
// it at the cursor (in ItemView) or at the end of the highlighted playlist (in
// PlaylistView). x drops it on the trash. Each drop is one move transaction on
// the sync engine; the lists redraw from store snapshots, so the local change
// shows before the provider confirms it.
//
// Store snapshots, sync progress and playback progress arrive on channels and
// are turned into [Msg] values, one pending read per channel.
package ui
