package models

import (
	"fmt"
	"time"
)

// SyncStatus tracks whether a remote write has been confirmed by the provider.
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncConfirmed SyncStatus = "confirmed"
	SyncFailed    SyncStatus = "failed"
)

// SyncOp is the kind of remote write.
type SyncOp string

const (
	OpInsert SyncOp = "insert"
	OpUpdate SyncOp = "update"
	OpDelete SyncOp = "delete"
)

// SyncRecord is one remote write issued for a move transaction.
//
// A failed record means local state and the provider may disagree for ItemID until it is retried or reloaded.
type SyncRecord struct {
	id         string
	MoveID     string
	Op         SyncOp
	Status     SyncStatus
	ItemID     string
	PlaylistID string
	Position   int
	Resource   ResourceRef
	Attempts   int
	LastError  string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewSyncRecord creates a pending record for op.
func NewSyncRecord(moveID string, op SyncOp, itemID, playlistID string, position int, ref ResourceRef) *SyncRecord {
	now := time.Now()
	return &SyncRecord{
		MoveID:     moveID,
		Op:         op,
		Status:     SyncPending,
		ItemID:     itemID,
		PlaylistID: playlistID,
		Position:   position,
		Resource:   ref,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (r *SyncRecord) ID() string           { return r.id }
func (r *SyncRecord) CreatedAt() time.Time { return r.createdAt }
func (r *SyncRecord) UpdatedAt() time.Time { return r.updatedAt }

func (r *SyncRecord) SetID(id string)          { r.id = id }
func (r *SyncRecord) SetCreatedAt(t time.Time) { r.createdAt = t }
func (r *SyncRecord) SetUpdatedAt(t time.Time) { r.updatedAt = t }

// Validate checks the record is addressable and its enums are known.
func (r *SyncRecord) Validate() error {
	switch r.Op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("unknown sync op %q", r.Op)
	}
	switch r.Status {
	case SyncPending, SyncConfirmed, SyncFailed:
	default:
		return fmt.Errorf("unknown sync status %q", r.Status)
	}
	if r.ItemID == "" && r.Op != OpInsert {
		return fmt.Errorf("item id is required for %s", r.Op)
	}
	if r.PlaylistID == "" {
		return fmt.Errorf("playlist id is required")
	}
	return nil
}

// Confirm marks the record as accepted by the provider.
func (r *SyncRecord) Confirm() {
	r.Status = SyncConfirmed
	r.LastError = ""
	r.updatedAt = time.Now()
}

// Fail marks the record as rejected and keeps the error text for display.
func (r *SyncRecord) Fail(err error) {
	r.Status = SyncFailed
	if err != nil {
		r.LastError = err.Error()
	}
	r.updatedAt = time.Now()
}
