package playlist

import (
	"context"
	"sort"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/repositories"
	"github.com/desertthunder/plst/internal/shared"
)

// Partition groups selected items into maximal contiguous ranges.
//
// Ranges are merged along prev links in a single pass. Each range is indexed by both of its
// endpoints, so a merge always finds the current range of a neighbour even after earlier
// merges extended it. Ranges come back in the order their first item appears in items.
// Duplicate items are ignored and every item must belong to the same playlist.
func Partition(items []*models.PlaylistItem) ([]models.Range, error) {
	if len(items) == 0 {
		return nil, nil
	}

	selected := make(map[models.ItemID]int, len(items))
	unique := make([]*models.PlaylistItem, 0, len(items))
	owner := items[0].PlaylistID
	for _, item := range items {
		if item.PlaylistID != owner {
			return nil, shared.Invariant("selection spans playlists %d and %d", owner, item.PlaylistID)
		}
		if _, ok := selected[item.ID]; ok {
			continue
		}
		selected[item.ID] = len(unique)
		unique = append(unique, item)
	}

	byFirst := make(map[models.ItemID]*models.Range, len(unique))
	byLast := make(map[models.ItemID]*models.Range, len(unique))
	for _, item := range unique {
		r := &models.Range{First: item.ID, Last: item.ID}
		byFirst[item.ID] = r
		byLast[item.ID] = r
	}

	for _, item := range unique {
		if _, ok := selected[item.Prev]; !ok || !item.Prev.Valid() {
			continue
		}

		left, okLeft := byLast[item.Prev]
		right, okRight := byFirst[item.ID]
		if !okLeft || !okRight {
			return nil, shared.Invariant("item %d and its prev %d do not bound a range", item.ID, item.Prev)
		}
		if left == right {
			return nil, shared.Invariant("cycle through item %d", item.ID)
		}

		delete(byLast, left.Last)
		delete(byFirst, right.First)
		left.Last = right.Last
		byLast[left.Last] = left
	}

	ranges := make([]models.Range, 0, len(byFirst))
	for _, r := range byFirst {
		ranges = append(ranges, *r)
	}
	sort.Slice(ranges, func(i, j int) bool {
		return selected[ranges[i].First] < selected[ranges[j].First]
	})
	return ranges, nil
}

func partitionIDs(ctx context.Context, store *repositories.Store, ids []models.ItemID) ([]models.Range, error) {
	items := make([]*models.PlaylistItem, 0, len(ids))
	seen := make(map[models.ItemID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		item, err := store.Items.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return Partition(items)
}
