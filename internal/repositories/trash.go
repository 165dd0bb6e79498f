package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/ytdeck/internal/models"
	"github.com/desertthunder/ytdeck/internal/shared"
)

// TrashRepository implements models.Repository[*models.TrashEntry] for the trash buffer.
type TrashRepository struct {
	db *sql.DB
}

// NewTrashRepository creates a new TrashRepository with the given database connection
func NewTrashRepository(db *sql.DB) *TrashRepository {
	return &TrashRepository{db: db}
}

const trashColumns = `id, item_id, playlist_id, position, title, thumbnail, channel_id, channel_title,
	resource_kind, video_id, created_at, restored_at`

// Create inserts a new trash entry with generated ID and sequence
func (r *TrashRepository) Create(entry *models.TrashEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "trash_entries")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	entry.SetID(id)

	query := `
		INSERT INTO trash_entries (id, sequence, item_id, playlist_id, position, title, thumbnail, channel_id,
			channel_title, resource_kind, video_id, created_at, restored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	item := entry.Item
	_, err = r.db.Exec(query,
		id,
		sequence,
		item.ID,
		entry.PlaylistID,
		entry.Position,
		item.Title,
		item.Thumbnail,
		item.ChannelID,
		item.ChannelTitle,
		item.Resource.Kind,
		item.Resource.VideoID,
		entry.CreatedAt(),
		entry.RestoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trash entry: %w", err)
	}

	return nil
}

// Get retrieves a trash entry by ID
func (r *TrashRepository) Get(id string) (*models.TrashEntry, error) {
	query := `SELECT ` + trashColumns + ` FROM trash_entries WHERE id = ?`

	entry, err := scanTrashEntry(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrashNotFound, id)
	}
	return entry, err
}

// Update persists the restore time of an entry
func (r *TrashRepository) Update(entry *models.TrashEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := r.db.Exec(`UPDATE trash_entries SET restored_at = ? WHERE id = ?`, entry.RestoredAt, entry.ID())
	if err != nil {
		return fmt.Errorf("failed to update trash entry: %w", err)
	}

	return expectOneRow(result, shared.ErrTrashNotFound, entry.ID())
}

// Delete permanently removes a trash entry by ID
func (r *TrashRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM trash_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trash entry: %w", err)
	}

	return expectOneRow(result, shared.ErrTrashNotFound, id)
}

// List retrieves trash entries newest first.
//
// Supported criteria: "playlist_id" (string) and "restored" (bool).
func (r *TrashRepository) List(criteria map[string]any) ([]*models.TrashEntry, error) {
	query := `SELECT ` + trashColumns + ` FROM trash_entries WHERE 1 = 1`
	args := []any{}

	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	if restored, ok := criteria["restored"].(bool); ok {
		if restored {
			query += " AND restored_at IS NOT NULL"
		} else {
			query += " AND restored_at IS NULL"
		}
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trash entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TrashEntry
	for rows.Next() {
		entry, err := scanTrashEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

func scanTrashEntry(s scanner) (*models.TrashEntry, error) {
	var (
		id         string
		item       models.PlaylistItem
		playlistID string
		position   int
		createdAt  sql.NullTime
		restoredAt sql.NullTime
	)

	err := s.Scan(
		&id,
		&item.ID,
		&playlistID,
		&position,
		&item.Title,
		&item.Thumbnail,
		&item.ChannelID,
		&item.ChannelTitle,
		&item.Resource.Kind,
		&item.Resource.VideoID,
		&createdAt,
		&restoredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan trash entry: %w", err)
	}

	item.PlaylistID = playlistID
	entry := models.NewTrashEntry(item, playlistID, position)
	entry.SetID(id)
	if createdAt.Valid {
		entry.SetCreatedAt(createdAt.Time)
	}
	if restoredAt.Valid {
		t := restoredAt.Time
		entry.RestoredAt = &t
	}

	return entry, nil
}

func expectOneRow(result sql.Result, notFound error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}
