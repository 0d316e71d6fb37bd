package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plst/internal/models"
)

const playlistColumns = `id, title, head_item, tail_item, current_item, item_count, total_duration, created_at`

// PlaylistRepository persists playlist headers.
//
// Pointer fields (head, tail, current) and aggregates are updated one column at a time so the
// mutation engine can choreograph relinks step by step.
type PlaylistRepository struct {
	db DBTX
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database handle
func NewPlaylistRepository(db DBTX) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts an empty playlist. A blank title becomes [models.UnnamedPlaylist].
func (r *PlaylistRepository) Create(ctx context.Context, title string) (*models.Playlist, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.UnnamedPlaylist
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO playlists (title, item_count, total_duration, created_at) VALUES (?, 0, 0, ?)`,
		title, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert playlist: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist id: %w", err)
	}

	return &models.Playlist{ID: models.PlaylistID(id), Title: title, CreatedAt: now}, nil
}

// Get retrieves a playlist by ID
func (r *PlaylistRepository) Get(ctx context.Context, id models.PlaylistID) (*models.Playlist, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	playlist, err := scanPlaylist(row)
	if err != nil {
		return nil, scanErr(err, "playlist", int64(id))
	}
	return playlist, nil
}

// List returns playlists newest first.
func (r *PlaylistRepository) List(ctx context.Context, offset, limit int) ([]*models.Playlist, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playlistColumns+` FROM playlists ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Rename changes the playlist title. A blank title becomes [models.UnnamedPlaylist].
func (r *PlaylistRepository) Rename(ctx context.Context, id models.PlaylistID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.UnnamedPlaylist
	}
	result, err := r.db.ExecContext(ctx, `UPDATE playlists SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return fmt.Errorf("failed to rename playlist: %w", err)
	}
	return expectOne(result, "playlist", int64(id))
}

// Delete removes a playlist and, by cascade, its items.
func (r *PlaylistRepository) Delete(ctx context.Context, id models.PlaylistID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return expectOne(result, "playlist", int64(id))
}

// SetHead points the playlist head at item, or clears it for zero.
func (r *PlaylistRepository) SetHead(ctx context.Context, id models.PlaylistID, item models.ItemID) error {
	return r.setPointer(ctx, "head_item", id, item)
}

// SetTail points the playlist tail at item, or clears it for zero.
func (r *PlaylistRepository) SetTail(ctx context.Context, id models.PlaylistID, item models.ItemID) error {
	return r.setPointer(ctx, "tail_item", id, item)
}

// SetCurrent points the playlist current item at item, or clears it for zero.
func (r *PlaylistRepository) SetCurrent(ctx context.Context, id models.PlaylistID, item models.ItemID) error {
	return r.setPointer(ctx, "current_item", id, item)
}

func (r *PlaylistRepository) setPointer(ctx context.Context, column string, id models.PlaylistID, item models.ItemID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE playlists SET `+column+` = ? WHERE id = ?`, nullable(item), id)
	if err != nil {
		return fmt.Errorf("failed to set playlist %s: %w", column, err)
	}
	return expectOne(result, "playlist", int64(id))
}

// AdjustTotals adds count and duration deltas to the playlist aggregates.
func (r *PlaylistRepository) AdjustTotals(ctx context.Context, id models.PlaylistID, count int, duration time.Duration) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE playlists SET item_count = item_count + ?, total_duration = total_duration + ? WHERE id = ?`,
		count, seconds(duration), id,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust playlist totals: %w", err)
	}
	return expectOne(result, "playlist", int64(id))
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	var (
		p                   models.Playlist
		head, tail, current sql.NullInt64
		totalSeconds        int64
	)

	if err := s.Scan(&p.ID, &p.Title, &head, &tail, &current, &p.ItemCount, &totalSeconds, &p.CreatedAt); err != nil {
		return nil, err
	}

	p.Head = models.ItemID(head.Int64)
	p.Tail = models.ItemID(tail.Int64)
	p.Current = models.ItemID(current.Int64)
	p.TotalDuration = time.Duration(totalSeconds) * time.Second
	return &p, nil
}
