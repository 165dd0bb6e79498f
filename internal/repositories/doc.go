// Package repositories implements SQLite persistence for the local side of playlist editing.
//
// Key Implementations:
//   - [TrashRepository] : items dropped on the trash target, kept so they can be restored
//   - [SyncJournalRepository] : one record per remote write with pending/confirmed/failed status
//   - [TokenRepository] : the signed-in user's OAuth token, refreshed on demand
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
