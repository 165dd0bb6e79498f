package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// SyncJournalRepository implements models.Repository[*models.SyncRecord] for remote write tracking.
type SyncJournalRepository struct {
	db *sql.DB
}

// NewSyncJournalRepository creates a new SyncJournalRepository with the given database connection
func NewSyncJournalRepository(db *sql.DB) *SyncJournalRepository {
	return &SyncJournalRepository{db: db}
}

const syncColumns = `id, move_id, op, status, item_id, playlist_id, position, resource_kind, video_id,
	attempts, last_error, created_at, updated_at`

// Create inserts a new record with generated ID and sequence
func (r *SyncJournalRepository) Create(record *models.SyncRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_records")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)

	query := `
		INSERT INTO sync_records (id, sequence, move_id, op, status, item_id, playlist_id, position,
			resource_kind, video_id, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.MoveID,
		string(record.Op),
		string(record.Status),
		record.ItemID,
		record.PlaylistID,
		record.Position,
		record.Resource.Kind,
		record.Resource.VideoID,
		record.Attempts,
		record.LastError,
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync record: %w", err)
	}

	return nil
}

// Get retrieves a record by ID
func (r *SyncJournalRepository) Get(id string) (*models.SyncRecord, error) {
	query := `SELECT ` + syncColumns + ` FROM sync_records WHERE id = ?`

	record, err := scanSyncRecord(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrRecordNotFound, id)
	}
	return record, err
}

// Update persists status, attempts, error text and the item id, which changes when an insert is confirmed
func (r *SyncJournalRepository) Update(record *models.SyncRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE sync_records
		SET status = ?, item_id = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(record.Status),
		record.ItemID,
		record.Attempts,
		record.LastError,
		now,
		record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync record: %w", err)
	}

	return expectOneRow(result, shared.ErrRecordNotFound, record.ID())
}

// Delete removes a record by ID
func (r *SyncJournalRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sync_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sync record: %w", err)
	}

	return expectOneRow(result, shared.ErrRecordNotFound, id)
}

// List retrieves records in creation order.
//
// Supported criteria: "status" (string), "move_id" (string) and "item_id" (string).
func (r *SyncJournalRepository) List(criteria map[string]any) ([]*models.SyncRecord, error) {
	query := `SELECT ` + syncColumns + ` FROM sync_records WHERE 1 = 1`
	args := []any{}

	for _, key := range []string{"status", "move_id", "item_id"} {
		if v, ok := criteria[key].(string); ok && v != "" {
			query += fmt.Sprintf(" AND %s = ?", key)
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncRecord
	for rows.Next() {
		record, err := scanSyncRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Counts returns the number of records per status.
func (r *SyncJournalRepository) Counts() (map[models.SyncStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM sync_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync records: %w", err)
	}
	defer rows.Close()

	counts := map[models.SyncStatus]int{
		models.SyncPending:   0,
		models.SyncConfirmed: 0,
		models.SyncFailed:    0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[models.SyncStatus(status)] = n
	}

	return counts, rows.Err()
}

// PurgeConfirmed deletes confirmed records older than cutoff and returns how many were removed.
func (r *SyncJournalRepository) PurgeConfirmed(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sync_records WHERE status = ? AND updated_at < ?`, string(models.SyncConfirmed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sync records: %w", err)
	}
	return result.RowsAffected()
}

func scanSyncRecord(s scanner) (*models.SyncRecord, error) {
	var (
		id         string
		moveID     string
		op         string
		status     string
		itemID     string
		playlistID string
		position   int
		ref        models.ResourceRef
		attempts   int
		lastError  string
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := s.Scan(
		&id,
		&moveID,
		&op,
		&status,
		&itemID,
		&playlistID,
		&position,
		&ref.Kind,
		&ref.VideoID,
		&attempts,
		&lastError,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan sync record: %w", err)
	}

	record := models.NewSyncRecord(moveID, models.SyncOp(op), itemID, playlistID, position, ref)
	record.SetID(id)
	record.Status = models.SyncStatus(status)
	record.Attempts = attempts
	record.LastError = lastError
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)

	return record, nil
}
