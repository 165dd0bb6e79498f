// Package tasks applies playlist edits locally and writes them back to YouTube with real-time progress reporting.
//
// # Move Transactions
//
// [Engine.Apply] takes a [Move] (source slot and optional destination slot) and performs one of:
//
//  1. Trash: destination playlist is [TrashID]
//     - removes the item locally and records a [models.TrashEntry]
//     - issues one remote delete
//
//  2. Reorder: destination is the source playlist
//     - rotates the item to its new index
//     - issues one remote position update
//
//  3. Cross-playlist move
//     - removes the item from the source and inserts it into the destination with its back-reference rewritten
//     - issues a remote insert and, only when it succeeds, a remote delete of the old membership
//
// A missing destination or a drop onto the same slot is a no-op. Without an access token nothing changes and
// [shared.ErrNotAuthenticated] is returned.
//
// # Play Position
//
// When the moved item is the one playing, the active play index (and for cross-playlist moves the active playlist)
// follows it. Otherwise, an index shifted by the removal or insertion is moved by one so "currently playing"
// still names the same item.
//
// # Remote Write-back
//
// The local change is committed first through [playlists.Store.Update]. Remote writes then run in a background
// goroutine per transaction, chained so they reach the provider in the order they were applied.
// Every write is journaled as a [models.SyncRecord]; failures are logged, kept as failed and can be
// re-issued with [Engine.Retry]. Trashed items are restored with [Engine.Restore] as a fresh insert.
//
// # Loading and Export
//
// [Loader] lists playlists in collated title order and fetches their items with a small worker pool.
// [BulkExport] writes a set of playlists to disk through the formatter package.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [SyncUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
package tasks
