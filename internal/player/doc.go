// package player drives an external mpv process.
//
// [MPV] speaks mpv's JSON IPC protocol over a unix socket: newline delimited
// JSON objects of the form {"command": [...], "request_id": n}. Replies carry
// the same request_id; asynchronous events carry an "event" field instead.
//
// The socket does not exist until mpv has started, so a missing socket is
// reported as [shared.ErrPlayerNotReady] rather than a failure. Callers are
// expected to poll [MPV.Ready] until it reports true.
//
// [Launcher] starts and stops the mpv process itself.
package player
