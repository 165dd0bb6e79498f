package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/playback"
	"github.com/desertthunder/ytdeck/internal/playlists"
	"github.com/desertthunder/ytdeck/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoaded MsgKind = iota
	MsgStoreChanged
	MsgSyncUpdate
	MsgPlayback
	MsgMoved
	MsgTrashListed
	MsgRestored
	MsgRetried
	MsgStatus
)

type loadedData struct{ err error }

type movedData struct {
	outcome tasks.Outcome
	err     error
}

type trashListedData struct {
	entries []*models.TrashEntry
	err     error
}

type restoredData struct {
	entry *models.TrashEntry
	err   error
}

type retriedData struct {
	result *tasks.RetryResult
	err    error
}

type statusData struct {
	text string
	err  error
}

func loadedMsg(err error) Msg { return Msg{kind: MsgLoaded, data: loadedData{err}} }

func storeChangedMsg(snap *playlists.Playlists) Msg { return Msg{kind: MsgStoreChanged, data: snap} }

func syncUpdateMsg(update tasks.SyncUpdate) Msg { return Msg{kind: MsgSyncUpdate, data: update} }

func playbackMsg(p playback.Progress) Msg { return Msg{kind: MsgPlayback, data: p} }

func movedMsg(outcome tasks.Outcome, err error) Msg {
	return Msg{kind: MsgMoved, data: movedData{outcome, err}}
}

func trashListedMsg(entries []*models.TrashEntry, err error) Msg {
	return Msg{kind: MsgTrashListed, data: trashListedData{entries, err}}
}

func restoredMsg(entry *models.TrashEntry, err error) Msg {
	return Msg{kind: MsgRestored, data: restoredData{entry, err}}
}

func retriedMsg(result *tasks.RetryResult, err error) Msg {
	return Msg{kind: MsgRetried, data: retriedData{result, err}}
}

// statusMsg reports the outcome of a fire-and-forget command; err wins over text.
func statusMsg(text string, err error) Msg { return Msg{kind: MsgStatus, data: statusData{text, err}} }
