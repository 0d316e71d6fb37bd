// Package playlist implements the linked-list mutation engine.
//
// A playlist is stored as rows whose prev/next columns hold neighbour identities. The engine
// performs the pointer surgery for appends, deletes and range moves, keeping the playlist
// head, tail, current pointer and aggregates consistent. Each public operation runs inside
// one SQLite transaction, so a failure part way through leaves the list untouched.
package playlist

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plst/internal/metrics"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/repositories"
	"github.com/desertthunder/plst/internal/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/desertthunder/plst/internal/playlist")

// Direction selects which neighbour a range is swapped with.
type Direction int

const (
	// Up swaps a range with the single node after it.
	Up Direction = iota
	// Down swaps a range with the single node before it.
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// Engine mutates playlists stored in SQLite.
type Engine struct {
	db     *sql.DB
	logger *log.Logger
}

// NewEngine creates an Engine over db.
func NewEngine(db *sql.DB, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{db: db, logger: shared.WithLogger(logger, "component", "playlist")}
}

// DB returns the database the engine writes to.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// run executes fn in a transaction with a span and an operation metric.
func (e *Engine) run(ctx context.Context, op string, pid models.PlaylistID, fn func(ctx context.Context, store *repositories.Store) error) error {
	ctx, span := tracer.Start(ctx, "playlist."+op, trace.WithAttributes(attribute.Int64("playlist.id", int64(pid))))
	defer span.End()

	err := shared.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		return fn(ctx, repositories.NewStore(tx))
	})
	metrics.ObserveListOp(op, err)
	if err != nil {
		span.RecordError(err)
		if shared.IsInvariant(err) {
			e.logger.Error("list invariant violated", "op", op, "playlist", pid, "err", err)
		}
		return fmt.Errorf("%s playlist %d: %w", op, pid, err)
	}
	return nil
}

// Append inserts a run of new items for media right after pivot, or at the head when pivot is zero.
//
// Returns the created item ids in order. An empty media list is a no-op.
func (e *Engine) Append(ctx context.Context, pid models.PlaylistID, pivot models.ItemID, media []models.MediaID, added time.Duration) ([]models.ItemID, error) {
	if len(media) == 0 {
		return nil, nil
	}

	var created []models.ItemID
	err := e.run(ctx, "append", pid, func(ctx context.Context, store *repositories.Store) error {
		playlist, err := store.Playlists.Get(ctx, pid)
		if err != nil {
			return err
		}

		successor := playlist.Head
		if pivot.Valid() {
			node, err := ownedItem(ctx, store, pid, pivot)
			if err != nil {
				return err
			}
			successor = node.Next
		}

		created = make([]models.ItemID, 0, len(media))
		prev := pivot
		for _, m := range media {
			item, err := store.Items.Insert(ctx, pid, m, prev, successor)
			if err != nil {
				return err
			}
			if prev.Valid() {
				err = store.Items.SetNext(ctx, prev, item.ID)
			} else {
				err = store.Playlists.SetHead(ctx, pid, item.ID)
			}
			if err != nil {
				return err
			}
			prev = item.ID
			created = append(created, item.ID)
		}

		if successor.Valid() {
			err = store.Items.SetPrev(ctx, successor, prev)
		} else {
			err = store.Playlists.SetTail(ctx, pid, prev)
		}
		if err != nil {
			return err
		}

		return store.Playlists.AdjustTotals(ctx, pid, len(media), added)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("appended items", "playlist", pid, "pivot", pivot, "count", len(created))
	return created, nil
}

// Delete unlinks and removes one item and reports whether it was the current item.
// The current pointer is cleared when it was.
func (e *Engine) Delete(ctx context.Context, pid models.PlaylistID, id models.ItemID) (bool, error) {
	var wasCurrent bool
	err := e.run(ctx, "delete", pid, func(ctx context.Context, store *repositories.Store) error {
		var err error
		wasCurrent, err = deleteItem(ctx, store, pid, id)
		return err
	})
	if err != nil {
		return false, err
	}

	e.logger.Debug("deleted item", "playlist", pid, "item", id, "current", wasCurrent)
	return wasCurrent, nil
}

// DeleteMany removes every listed item in one transaction and reports whether the current item was among them.
func (e *Engine) DeleteMany(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}

	var removedCurrent bool
	err := e.run(ctx, "delete", pid, func(ctx context.Context, store *repositories.Store) error {
		seen := make(map[models.ItemID]struct{}, len(ids))
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			wasCurrent, err := deleteItem(ctx, store, pid, id)
			if err != nil {
				return err
			}
			removedCurrent = removedCurrent || wasCurrent
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return removedCurrent, nil
}

func deleteItem(ctx context.Context, store *repositories.Store, pid models.PlaylistID, id models.ItemID) (bool, error) {
	item, err := ownedItem(ctx, store, pid, id)
	if err != nil {
		return false, err
	}

	playlist, err := store.Playlists.Get(ctx, pid)
	if err != nil {
		return false, err
	}

	if item.Prev.Valid() {
		if _, err := ownedItem(ctx, store, pid, item.Prev); err != nil {
			return false, err
		}
		err = store.Items.SetNext(ctx, item.Prev, item.Next)
	} else {
		err = store.Playlists.SetHead(ctx, pid, item.Next)
	}
	if err != nil {
		return false, err
	}

	if item.Next.Valid() {
		if _, err := ownedItem(ctx, store, pid, item.Next); err != nil {
			return false, err
		}
		err = store.Items.SetPrev(ctx, item.Next, item.Prev)
	} else {
		err = store.Playlists.SetTail(ctx, pid, item.Prev)
	}
	if err != nil {
		return false, err
	}

	media, err := store.Media.Get(ctx, item.MediaID)
	if err != nil {
		return false, err
	}
	if err := store.Playlists.AdjustTotals(ctx, pid, -1, -media.KnownDuration()); err != nil {
		return false, err
	}

	wasCurrent := playlist.Current == id
	if wasCurrent {
		if err := store.Playlists.SetCurrent(ctx, pid, 0); err != nil {
			return false, err
		}
	}

	if err := store.Items.Delete(ctx, id); err != nil {
		return false, err
	}
	return wasCurrent, nil
}

// PartitionIntoRanges loads the selected items and groups them into maximal contiguous ranges.
func (e *Engine) PartitionIntoRanges(ctx context.Context, ids []models.ItemID) ([]models.Range, error) {
	return partitionIDs(ctx, repositories.NewStore(e.db), ids)
}

// MoveUp partitions ids and swaps every range with the node after it.
func (e *Engine) MoveUp(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) ([]models.Range, error) {
	return e.move(ctx, pid, ids, Up)
}

// MoveDown partitions ids and swaps every range with the node before it.
func (e *Engine) MoveDown(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) ([]models.Range, error) {
	return e.move(ctx, pid, ids, Down)
}

func (e *Engine) move(ctx context.Context, pid models.PlaylistID, ids []models.ItemID, dir Direction) ([]models.Range, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var ranges []models.Range
	err := e.run(ctx, "move_"+dir.String(), pid, func(ctx context.Context, store *repositories.Store) error {
		var err error
		ranges, err = partitionIDs(ctx, store, ids)
		if err != nil {
			return err
		}

		for _, r := range ranges {
			if _, err := ownedItem(ctx, store, pid, r.First); err != nil {
				return err
			}
			if err := moveRange(ctx, store, pid, r, dir); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("moved ranges", "playlist", pid, "direction", dir, "ranges", len(ranges))
	return ranges, nil
}

// MoveRange swaps a single range with its neighbour in dir. It is a no-op at the list boundary.
func (e *Engine) MoveRange(ctx context.Context, pid models.PlaylistID, r models.Range, dir Direction) error {
	return e.run(ctx, "move_"+dir.String(), pid, func(ctx context.Context, store *repositories.Store) error {
		return moveRange(ctx, store, pid, r, dir)
	})
}

func moveRange(ctx context.Context, store *repositories.Store, pid models.PlaylistID, r models.Range, dir Direction) error {
	first, err := ownedItem(ctx, store, pid, r.First)
	if err != nil {
		return err
	}
	last := first
	if r.Last != r.First {
		if last, err = ownedItem(ctx, store, pid, r.Last); err != nil {
			return err
		}
	}

	if dir == Up {
		return swapWithAfter(ctx, store, pid, first, last)
	}
	return swapWithBefore(ctx, store, pid, first, last)
}

// swapWithAfter moves the node following last to just before first.
func swapWithAfter(ctx context.Context, store *repositories.Store, pid models.PlaylistID, first, last *models.PlaylistItem) error {
	before, after := first.Prev, last.Next
	if !after.Valid() {
		return nil
	}

	afterNode, err := ownedItem(ctx, store, pid, after)
	if err != nil {
		return err
	}
	afterAfter := afterNode.Next

	if err := store.Items.SetLinks(ctx, after, before, first.ID); err != nil {
		return err
	}
	if err := store.Items.SetPrev(ctx, first.ID, after); err != nil {
		return err
	}
	if err := store.Items.SetNext(ctx, last.ID, afterAfter); err != nil {
		return err
	}

	if afterAfter.Valid() {
		err = store.Items.SetPrev(ctx, afterAfter, last.ID)
	} else {
		err = store.Playlists.SetTail(ctx, pid, last.ID)
	}
	if err != nil {
		return err
	}

	if before.Valid() {
		return store.Items.SetNext(ctx, before, after)
	}
	return store.Playlists.SetHead(ctx, pid, after)
}

// swapWithBefore moves the node preceding first to just after last.
func swapWithBefore(ctx context.Context, store *repositories.Store, pid models.PlaylistID, first, last *models.PlaylistItem) error {
	before, after := first.Prev, last.Next
	if !before.Valid() {
		return nil
	}

	beforeNode, err := ownedItem(ctx, store, pid, before)
	if err != nil {
		return err
	}
	beforeBefore := beforeNode.Prev

	if err := store.Items.SetLinks(ctx, before, last.ID, after); err != nil {
		return err
	}
	if err := store.Items.SetNext(ctx, last.ID, before); err != nil {
		return err
	}
	if err := store.Items.SetPrev(ctx, first.ID, beforeBefore); err != nil {
		return err
	}

	if after.Valid() {
		err = store.Items.SetPrev(ctx, after, before)
	} else {
		err = store.Playlists.SetTail(ctx, pid, before)
	}
	if err != nil {
		return err
	}

	if beforeBefore.Valid() {
		return store.Items.SetNext(ctx, beforeBefore, first.ID)
	}
	return store.Playlists.SetHead(ctx, pid, first.ID)
}

// ownedItem loads id and checks it belongs to pid.
func ownedItem(ctx context.Context, store *repositories.Store, pid models.PlaylistID, id models.ItemID) (*models.PlaylistItem, error) {
	item, err := store.Items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.PlaylistID != pid {
		return nil, shared.Invariant("item %d belongs to playlist %d, not %d", id, item.PlaylistID, pid)
	}
	return item, nil
}
