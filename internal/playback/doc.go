// package playback owns the player handle and the Idle/Loading/Playing/Paused state machine.
//
// A [Controller] translates "play playlist P at index I" and next/previous
// requests into player commands, persists the play index through the
// playlist store, and tracks playback time by polling the player.
//
// Two background loops exist and each has a single owner:
//
//   - the readiness loop, started by [Controller.LoadPlaylist], retries at a
//     fixed interval until the player answers and accepts the playlist.
//     There is no hard timeout; a newer load or [Controller.Close] supersedes it.
//   - the poll loop reads the current time and duration while Playing. It is
//     always stopped before a new one starts and stops on pause, end and close.
//
// Settings changed before the player is ready (volume, mute, shuffle) are
// kept and applied once a playlist has been loaded.
package playback
