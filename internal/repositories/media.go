package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/shared"
)

const mediaColumns = `id, title, artist, duration, url, media_type, views, created_at`

// MediaRepository reads and registers media records.
//
// Media metadata is resolved outside this system, so records arrive complete.
type MediaRepository struct {
	db DBTX
}

// NewMediaRepository creates a new MediaRepository with the given database handle
func NewMediaRepository(db DBTX) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts media and sets its ID.
func (r *MediaRepository) Create(ctx context.Context, media *models.Media) error {
	if err := media.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if media.MediaType == "" {
		media.MediaType = models.MediaLocal
	}

	var duration sql.NullInt64
	if media.Duration != nil {
		duration = sql.NullInt64{Int64: seconds(*media.Duration), Valid: true}
	}

	media.CreatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO medias (title, artist, duration, url, media_type, views, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		media.Title, media.Artist, duration, media.URL, string(media.MediaType), media.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read media id: %w", err)
	}
	media.ID = models.MediaID(id)
	media.Views = 0
	return nil
}

// Get retrieves media by ID
func (r *MediaRepository) Get(ctx context.Context, id models.MediaID) (*models.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM medias WHERE id = ?`, id)
	media, err := scanMedia(row)
	if err != nil {
		return nil, scanErr(err, "media", int64(id))
	}
	return media, nil
}

// GetByURL retrieves media by its unique URL
func (r *MediaRepository) GetByURL(ctx context.Context, url string) (*models.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM medias WHERE url = ?`, url)
	media, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: media %q", shared.ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media: %w", err)
	}
	return media, nil
}

// IncrementViews bumps the view counter of media.
func (r *MediaRepository) IncrementViews(ctx context.Context, id models.MediaID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE medias SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return expectOne(result, "media", int64(id))
}

// TotalDuration sums the known durations of media, counting repeats.
func (r *MediaRepository) TotalDuration(ctx context.Context, ids []models.MediaID) (time.Duration, error) {
	var total time.Duration
	cache := make(map[models.MediaID]time.Duration, len(ids))
	for _, id := range ids {
		d, ok := cache[id]
		if !ok {
			media, err := r.Get(ctx, id)
			if err != nil {
				return 0, err
			}
			d = media.KnownDuration()
			cache[id] = d
		}
		total += d
	}
	return total, nil
}

func scanMedia(s scanner) (*models.Media, error) {
	var (
		media     models.Media
		duration  sql.NullInt64
		mediaType string
	)

	if err := s.Scan(&media.ID, &media.Title, &media.Artist, &duration, &media.URL, &mediaType, &media.Views, &media.CreatedAt); err != nil {
		return nil, err
	}

	if duration.Valid {
		d := time.Duration(duration.Int64) * time.Second
		media.Duration = &d
	}
	media.MediaType = models.MediaType(mediaType)
	return &media, nil
}
