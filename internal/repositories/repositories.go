package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plst/internal/shared"
)

// DBTX is the subset of [sql.DB] and [sql.Tx] used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the repositories over a single connection or transaction.
type Store struct {
	Playlists *PlaylistRepository
	Items     *PlaylistItemRepository
	Media     *MediaRepository
}

// NewStore binds every repository to db.
func NewStore(db DBTX) *Store {
	return &Store{
		Playlists: NewPlaylistRepository(db),
		Items:     NewPlaylistItemRepository(db),
		Media:     NewMediaRepository(db),
	}
}

// nullable stores a zero id as NULL.
func nullable[T ~int64](id T) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id > 0}
}

// seconds converts a duration to whole stored seconds.
func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// expectOne turns a zero rows-affected update into a not-found error.
func expectOne(result sql.Result, kind string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return shared.NotFound(kind, id)
	}
	return nil
}

// scanErr maps [sql.ErrNoRows] to a not-found error.
func scanErr(err error, kind string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return shared.NotFound(kind, id)
	}
	return fmt.Errorf("failed to scan %s: %w", kind, err)
}

type scanner interface {
	Scan(dest ...any) error
}
