// Package models defines the domain types for the playlist deck.
//
// The package contains two categories of types:
//
// 1. Playlist data mirrored from the YouTube Data API
//   - [Playlist] : ordered items plus the remembered play index
//   - [PlaylistItem] : one membership record, with its own id distinct from the video
//   - [ResourceRef] : the video behind an item
//   - [PlaylistSummary] : listing metadata
//
// 2. Persistent entities stored locally
//   - [TrashEntry] : items dropped on the trash target, restorable by re-insert
//   - [SyncRecord] : remote writes issued by move transactions with their sync status
//
// Persistent entities implement [Model]; [Repository] is the CRUD contract their SQLite repositories follow.
package models
