package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plst/internal/models"
)

const itemColumns = `id, playlist_id, media_id, prev_item, next_item, created_at`

// PlaylistItemRepository persists list nodes and their links.
type PlaylistItemRepository struct {
	db DBTX
}

// NewPlaylistItemRepository creates a new PlaylistItemRepository with the given database handle
func NewPlaylistItemRepository(db DBTX) *PlaylistItemRepository {
	return &PlaylistItemRepository{db: db}
}

// Get retrieves an item by ID
func (r *PlaylistItemRepository) Get(ctx context.Context, id models.ItemID) (*models.PlaylistItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM playlist_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err != nil {
		return nil, scanErr(err, "playlist item", int64(id))
	}
	return item, nil
}

// GetMany retrieves the given items keyed by ID. Any missing id fails the whole lookup.
func (r *PlaylistItemRepository) GetMany(ctx context.Context, ids []models.ItemID) (map[models.ItemID]*models.PlaylistItem, error) {
	items := make(map[models.ItemID]*models.PlaylistItem, len(ids))
	for _, id := range ids {
		if _, ok := items[id]; ok {
			continue
		}
		item, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		items[id] = item
	}
	return items, nil
}

// Insert creates an item with the given links and returns it with its new ID.
func (r *PlaylistItemRepository) Insert(ctx context.Context, playlist models.PlaylistID, media models.MediaID, prev, next models.ItemID) (*models.PlaylistItem, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO playlist_items (playlist_id, media_id, prev_item, next_item, created_at) VALUES (?, ?, ?, ?, ?)`,
		playlist, media, nullable(prev), nullable(next), now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert playlist item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist item id: %w", err)
	}

	return &models.PlaylistItem{
		ID:         models.ItemID(id),
		PlaylistID: playlist,
		MediaID:    media,
		Prev:       prev,
		Next:       next,
		CreatedAt:  now,
	}, nil
}

// SetPrev rewrites the prev link of item, or clears it for zero.
func (r *PlaylistItemRepository) SetPrev(ctx context.Context, id, prev models.ItemID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE playlist_items SET prev_item = ? WHERE id = ?`, nullable(prev), id)
	if err != nil {
		return fmt.Errorf("failed to set prev link: %w", err)
	}
	return expectOne(result, "playlist item", int64(id))
}

// SetNext rewrites the next link of item, or clears it for zero.
func (r *PlaylistItemRepository) SetNext(ctx context.Context, id, next models.ItemID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE playlist_items SET next_item = ? WHERE id = ?`, nullable(next), id)
	if err != nil {
		return fmt.Errorf("failed to set next link: %w", err)
	}
	return expectOne(result, "playlist item", int64(id))
}

// SetLinks rewrites both links of item.
func (r *PlaylistItemRepository) SetLinks(ctx context.Context, id, prev, next models.ItemID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE playlist_items SET prev_item = ?, next_item = ? WHERE id = ?`,
		nullable(prev), nullable(next), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set links: %w", err)
	}
	return expectOne(result, "playlist item", int64(id))
}

// Delete removes an item record without touching its neighbours.
func (r *PlaylistItemRepository) Delete(ctx context.Context, id models.ItemID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM playlist_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist item: %w", err)
	}
	return expectOne(result, "playlist item", int64(id))
}

// CountByPlaylist counts the stored rows of a playlist regardless of reachability.
func (r *PlaylistItemRepository) CountByPlaylist(ctx context.Context, playlist models.PlaylistID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_items WHERE playlist_id = ?`, playlist).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count playlist items: %w", err)
	}
	return count, nil
}

func scanItem(s scanner) (*models.PlaylistItem, error) {
	var (
		item       models.PlaylistItem
		prev, next sql.NullInt64
	)

	if err := s.Scan(&item.ID, &item.PlaylistID, &item.MediaID, &prev, &next, &item.CreatedAt); err != nil {
		return nil, err
	}

	item.Prev = models.ItemID(prev.Int64)
	item.Next = models.ItemID(next.Int64)
	return &item, nil
}
