// Package playlists holds the in-memory playlist aggregate and the store that owns it.
//
// # Aggregate
//
// [Playlists] is the ordered set of the user's playlists plus the identity of the active one.
// Each [models.Playlist] remembers its own play index, so switching back to a playlist resumes where it left off.
//
// The aggregate keeps three invariants after every exported mutation:
//   - the active id, when set, names a playlist in the aggregate
//   - every item's PlaylistID matches the playlist holding it
//   - every play index is inside [0, len(items)), or 0 for an empty playlist
//
// Lookups come in two forms. [Playlists.Get] is checked and should be the default.
// [Playlists.MustGet] panics on a missing id and is only for ids that came from the aggregate itself.
//
// # Store
//
// [Store] is the single owner of the live aggregate. [Store.Update] is the only way to mutate it:
// the function runs against a private copy that is committed only when it returns nil,
// so a move transaction is applied whole or not at all. Subscribers then receive a deep snapshot.
package playlists
