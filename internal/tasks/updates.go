package tasks

import (
	"fmt"

	"github.com/desertthunder/ytdeck/internal/models"
)

// SyncUpdate represents a progress event while loading playlists or writing moves to the provider.
//
// Used to send real-time updates to the CLI or UI layer for display.
type SyncUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data (*models.SyncRecord for remote writes)
	Err     error  // Set when the step failed
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchItems
	RemoteInsert
	RemoteUpdate
	RemoteDelete
	Retry
	Restore
	Export
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchItems:
		return "fetch_items"
	case RemoteInsert:
		return "remote_insert"
	case RemoteUpdate:
		return "remote_update"
	case RemoteDelete:
		return "remote_delete"
	case Retry:
		return "retry"
	case Restore:
		return "restore"
	case Export:
		return "export"
	default:
		return ""
	}
}

// sendProgress sends an update without blocking. A full or nil channel drops it.
func sendProgress(progress chan<- SyncUpdate, update SyncUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func phaseFor(op models.SyncOp) Phase {
	switch op {
	case models.OpInsert:
		return RemoteInsert
	case models.OpUpdate:
		return RemoteUpdate
	default:
		return RemoteDelete
	}
}

func fetchPlaylistsUpdate() SyncUpdate {
	return SyncUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: "Fetching playlists from YouTube...",
	}
}

func fetchItemsUpdate(step, total int, title string, err error) SyncUpdate {
	if err != nil {
		return SyncUpdate{
			Phase:   FetchItems,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
			Err:     err,
		}
	}
	return SyncUpdate{
		Phase:   FetchItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, title),
	}
}

func remoteUpdate(step, total int, r *models.SyncRecord) SyncUpdate {
	u := SyncUpdate{Phase: phaseFor(r.Op), Step: step, Total: total, Data: r}
	switch r.Status {
	case models.SyncConfirmed:
		u.Message = fmt.Sprintf("✓ %s %s in %s", r.Op, r.Resource.VideoID, r.PlaylistID)
	case models.SyncFailed:
		u.Message = fmt.Sprintf("✗ %s %s in %s: %s", r.Op, r.Resource.VideoID, r.PlaylistID, r.LastError)
		u.Err = fmt.Errorf("%s", r.LastError)
	default:
		u.Message = fmt.Sprintf("%s %s in %s...", r.Op, r.Resource.VideoID, r.PlaylistID)
	}
	return u
}

func retryUpdate(step, total int, r *models.SyncRecord) SyncUpdate {
	u := remoteUpdate(step, total, r)
	u.Phase = Retry
	return u
}

func restoreUpdate(entry *models.TrashEntry) SyncUpdate {
	return SyncUpdate{
		Phase:   Restore,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Restoring %s to %s at %d", entry.Item.Title, entry.PlaylistID, entry.Position),
		Data:    entry,
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) SyncUpdate {
	return SyncUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) SyncUpdate {
	return SyncUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
		Err:     err,
	}
}
