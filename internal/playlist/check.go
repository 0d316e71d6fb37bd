package playlist

import (
	"context"
	"time"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/repositories"
	"github.com/desertthunder/plst/internal/shared"
)

// Report summarises a verified playlist.
type Report struct {
	Playlist *models.Playlist
	Order    []models.ItemID
	Duration time.Duration
}

// Check walks the list from head and verifies every structural and aggregate invariant.
//
// The first problem found is returned wrapped in [shared.ErrInvariantViolation].
func (e *Engine) Check(ctx context.Context, pid models.PlaylistID) (*Report, error) {
	return Check(ctx, repositories.NewStore(e.db), pid)
}

// Check verifies pid using store.
func Check(ctx context.Context, store *repositories.Store, pid models.PlaylistID) (*Report, error) {
	playlist, err := store.Playlists.Get(ctx, pid)
	if err != nil {
		return nil, err
	}

	if playlist.Head.Valid() != playlist.Tail.Valid() {
		return nil, shared.Invariant("playlist %d has head %d but tail %d", pid, playlist.Head, playlist.Tail)
	}
	if !playlist.Head.Valid() && playlist.ItemCount != 0 {
		return nil, shared.Invariant("empty playlist %d has item_count %d", pid, playlist.ItemCount)
	}

	report := &Report{Playlist: playlist, Order: make([]models.ItemID, 0, playlist.ItemCount)}
	seen := make(map[models.ItemID]struct{}, playlist.ItemCount)
	durations := make(map[models.MediaID]time.Duration)

	prev := models.ItemID(0)
	for cur := playlist.Head; cur.Valid(); {
		if _, ok := seen[cur]; ok {
			return nil, shared.Invariant("playlist %d revisits item %d", pid, cur)
		}
		if len(report.Order) >= playlist.ItemCount {
			return nil, shared.Invariant("playlist %d has more reachable items than item_count %d", pid, playlist.ItemCount)
		}

		item, err := store.Items.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		if item.PlaylistID != pid {
			return nil, shared.Invariant("item %d belongs to playlist %d, not %d", cur, item.PlaylistID, pid)
		}
		if item.Prev != prev {
			return nil, shared.Invariant("item %d has prev %d, expected %d", cur, item.Prev, prev)
		}

		d, ok := durations[item.MediaID]
		if !ok {
			media, err := store.Media.Get(ctx, item.MediaID)
			if err != nil {
				return nil, err
			}
			d = media.KnownDuration()
			durations[item.MediaID] = d
		}

		report.Duration += d
		report.Order = append(report.Order, cur)
		seen[cur] = struct{}{}
		prev, cur = cur, item.Next
	}

	if prev != playlist.Tail {
		return nil, shared.Invariant("playlist %d walk ends at %d but tail is %d", pid, prev, playlist.Tail)
	}
	if len(report.Order) != playlist.ItemCount {
		return nil, shared.Invariant("playlist %d reaches %d items but item_count is %d", pid, len(report.Order), playlist.ItemCount)
	}
	if report.Duration != playlist.TotalDuration {
		return nil, shared.Invariant("playlist %d items last %v but total_duration is %v", pid, report.Duration, playlist.TotalDuration)
	}
	if playlist.Current.Valid() {
		if _, ok := seen[playlist.Current]; !ok {
			return nil, shared.Invariant("playlist %d current item %d is not in the list", pid, playlist.Current)
		}
	}

	stored, err := store.Items.CountByPlaylist(ctx, pid)
	if err != nil {
		return nil, err
	}
	if stored != len(report.Order) {
		return nil, shared.Invariant("playlist %d stores %d items but only %d are reachable", pid, stored, len(report.Order))
	}

	return report, nil
}
