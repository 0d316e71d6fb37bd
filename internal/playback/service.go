// Package playback ties the playlist engine to the viewer coordinator.
//
// [Service] serves the intents of the HTTP and socket layers: it reads and mutates playlists
// through the engine and tells the coordinator which notification to broadcast afterwards.
package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/playlist"
	"github.com/desertthunder/plst/internal/repositories"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/desertthunder/plst/internal/watch"
)

const (
	DefaultWindow = 10
	MaxWindow     = 30
)

// Position selects where added media go.
type Position string

const (
	// QueueNext inserts right after the current item.
	QueueNext Position = "queue-next"
	// AddToEnd inserts after the tail.
	AddToEnd Position = "add-to-end"
)

// ParsePosition maps s to a Position. Unknown values fall back to [QueueNext].
func ParsePosition(s string) (Position, bool) {
	switch Position(strings.TrimSpace(strings.ToLower(s))) {
	case "", QueueNext:
		return QueueNext, true
	case AddToEnd:
		return AddToEnd, true
	default:
		return QueueNext, false
	}
}

// Window is a run of consecutive playlist entries.
type Window struct {
	Playlist *models.Playlist `json:"playlist"`
	Entries  []models.Entry   `json:"entries"`
	Duration time.Duration    `json:"duration"`
	// Next is the item following the window, zero at the end of the list.
	Next models.ItemID `json:"next,omitempty"`
}

// Service is the playback orchestrator.
type Service struct {
	engine *playlist.Engine
	store  *repositories.Store
	watch  *watch.Coordinator
	logger *log.Logger

	draining atomic.Bool
}

// NewService creates a Service. Reads go straight to the engine database.
func NewService(engine *playlist.Engine, coordinator *watch.Coordinator, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{
		engine: engine,
		store:  repositories.NewStore(engine.DB()),
		watch:  coordinator,
		logger: shared.WithLogger(logger, "component", "playback"),
	}
}

// Coordinator returns the viewer coordinator.
func (s *Service) Coordinator() *watch.Coordinator {
	return s.watch
}

// CreatePlaylist creates an empty playlist.
func (s *Service) CreatePlaylist(ctx context.Context, title string) (*models.Playlist, error) {
	return s.store.Playlists.Create(ctx, title)
}

// Playlists lists playlists newest first.
func (s *Service) Playlists(ctx context.Context, offset, limit int) ([]*models.Playlist, error) {
	return s.store.Playlists.List(ctx, offset, limit)
}

// Playlist fetches one playlist.
func (s *Service) Playlist(ctx context.Context, pid models.PlaylistID) (*models.Playlist, error) {
	return s.store.Playlists.Get(ctx, pid)
}

// RenamePlaylist changes the title and tells viewers the metadata changed.
func (s *Service) RenamePlaylist(ctx context.Context, pid models.PlaylistID, title string) error {
	if err := s.store.Playlists.Rename(ctx, pid, title); err != nil {
		return err
	}
	s.broadcast(ctx, pid, watch.MsgMetadataChanged)
	return nil
}

// DeletePlaylist removes a playlist with its items and tells viewers to refresh.
func (s *Service) DeletePlaylist(ctx context.Context, pid models.PlaylistID) error {
	if err := s.store.Playlists.Delete(ctx, pid); err != nil {
		return err
	}
	s.broadcast(ctx, pid, watch.MsgRefresh)
	return nil
}

// RegisterMedia stores a media record, returning the existing one when its URL is known.
func (s *Service) RegisterMedia(ctx context.Context, media *models.Media) (*models.Media, error) {
	if err := media.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	existing, err := s.store.Media.GetByURL(ctx, media.URL)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := s.store.Media.Create(ctx, media); err != nil {
		return nil, err
	}
	return media, nil
}

// Media fetches one media record.
func (s *Service) Media(ctx context.Context, id models.MediaID) (*models.Media, error) {
	return s.store.Media.Get(ctx, id)
}

// Add appends media at position and tells viewers to refresh.
//
// A missing pivot (no current item, or an empty list) falls back to the tail.
func (s *Service) Add(ctx context.Context, pid models.PlaylistID, media []models.MediaID, position Position) ([]models.ItemID, error) {
	if len(media) == 0 {
		return nil, nil
	}

	p, err := s.store.Playlists.Get(ctx, pid)
	if err != nil {
		return nil, err
	}

	pivot := p.Tail
	if position == QueueNext && p.Current.Valid() {
		pivot = p.Current
	}

	added, err := s.store.Media.TotalDuration(ctx, media)
	if err != nil {
		return nil, err
	}

	ids, err := s.engine.Append(ctx, pid, pivot, media, added)
	if err != nil {
		return nil, err
	}

	s.logger.Info("added media", "playlist", pid, "count", len(ids), "position", position)
	s.broadcast(ctx, pid, watch.MsgRefresh)
	return ids, nil
}

// Window reads up to limit entries starting at after, or at the head when after is zero.
// The limit is clamped to [1, MaxWindow]; callers apply [DefaultWindow] when none was given.
func (s *Service) Window(ctx context.Context, pid models.PlaylistID, after models.ItemID, limit int) (*Window, error) {
	limit = min(max(limit, 1), MaxWindow)

	p, err := s.store.Playlists.Get(ctx, pid)
	if err != nil {
		return nil, err
	}

	w := &Window{Playlist: p, Entries: make([]models.Entry, 0, limit)}
	cur := p.Head
	if after.Valid() {
		cur = after
	}

	for cur.Valid() && len(w.Entries) < limit {
		item, err := s.store.Items.Get(ctx, cur)
		if err != nil {
			return nil, err
		}
		if item.PlaylistID != pid {
			return nil, fmt.Errorf("%w: item %d is not in playlist %d", shared.ErrInvalidArgument, cur, pid)
		}

		media, err := s.store.Media.Get(ctx, item.MediaID)
		if err != nil {
			return nil, err
		}

		w.Entries = append(w.Entries, models.Entry{Item: *item, Media: *media})
		w.Duration += media.KnownDuration()
		cur = item.Next
	}
	w.Next = cur

	return w, nil
}

// Export reads the whole of pid in list order, one window at a time.
func (s *Service) Export(ctx context.Context, pid models.PlaylistID) (*models.PlaylistExport, error) {
	export := &models.PlaylistExport{}
	var after models.ItemID
	for {
		w, err := s.Window(ctx, pid, after, MaxWindow)
		if err != nil {
			return nil, err
		}
		if after == 0 {
			export.Playlist = *w.Playlist
			export.Entries = make([]models.Entry, 0, w.Playlist.ItemCount)
		}
		export.Entries = append(export.Entries, w.Entries...)
		if !w.Next.Valid() {
			return export, nil
		}
		after = w.Next
	}
}

// CurrentItem returns the current entry of pid, or nil when nothing is current.
func (s *Service) CurrentItem(ctx context.Context, pid models.PlaylistID) (*models.Entry, error) {
	p, err := s.store.Playlists.Get(ctx, pid)
	if err != nil {
		return nil, err
	}
	if !p.Current.Valid() {
		return nil, nil
	}

	item, err := s.store.Items.Get(ctx, p.Current)
	if err != nil {
		return nil, err
	}
	media, err := s.store.Media.Get(ctx, item.MediaID)
	if err != nil {
		return nil, err
	}
	return &models.Entry{Item: *item, Media: *media}, nil
}

// CurrentMedia returns the media of the current item of pid, or nil.
func (s *Service) CurrentMedia(ctx context.Context, pid models.PlaylistID) (*models.Media, error) {
	entry, err := s.CurrentItem(ctx, pid)
	if err != nil || entry == nil {
		return nil, err
	}
	return &entry.Media, nil
}

// GoToItem makes id the current item of its playlist and restarts every viewer on it.
func (s *Service) GoToItem(ctx context.Context, id models.ItemID) (models.PlaylistID, error) {
	item, err := s.store.Items.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	if err := s.store.Playlists.SetCurrent(ctx, item.PlaylistID, id); err != nil {
		return 0, err
	}
	if err := s.store.Media.IncrementViews(ctx, item.MediaID); err != nil {
		s.logger.Warn("failed to count view", "media", item.MediaID, "err", err)
	}

	s.watch.Reset(item.PlaylistID)
	s.broadcast(ctx, item.PlaylistID, watch.MsgMediaChanged)
	s.logger.Info("media changed", "playlist", item.PlaylistID, "item", id, "media", item.MediaID)
	return item.PlaylistID, nil
}

// Next advances pid to the item after the current one, wrapping to the head.
// Returns the new current item, or zero when the playlist is empty.
func (s *Service) Next(ctx context.Context, pid models.PlaylistID) (models.ItemID, error) {
	return s.step(ctx, pid, true)
}

// Previous moves pid to the item before the current one, wrapping to the tail.
func (s *Service) Previous(ctx context.Context, pid models.PlaylistID) (models.ItemID, error) {
	return s.step(ctx, pid, false)
}

func (s *Service) step(ctx context.Context, pid models.PlaylistID, forward bool) (models.ItemID, error) {
	p, err := s.store.Playlists.Get(ctx, pid)
	if err != nil {
		return 0, err
	}

	var target models.ItemID
	if p.Current.Valid() {
		item, err := s.store.Items.Get(ctx, p.Current)
		if err != nil {
			return 0, err
		}
		if forward {
			target = item.Next
		} else {
			target = item.Prev
		}
	}

	if !target.Valid() {
		if forward {
			target = p.Head
		} else {
			target = p.Tail
		}
	}
	if !target.Valid() {
		return 0, nil
	}

	if _, err := s.GoToItem(ctx, target); err != nil {
		return 0, err
	}
	return target, nil
}

// Play resumes pid and notifies viewers.
func (s *Service) Play(ctx context.Context, pid models.PlaylistID) string {
	msg := s.watch.SetPlaybackStatus(pid, true)
	s.broadcast(ctx, pid, msg)
	return msg
}

// Pause pauses pid and notifies viewers.
func (s *Service) Pause(ctx context.Context, pid models.PlaylistID) string {
	msg := s.watch.SetPlaybackStatus(pid, false)
	s.broadcast(ctx, pid, msg)
	return msg
}

// TogglePlayback flips pid between playing and paused and notifies viewers.
func (s *Service) TogglePlayback(ctx context.Context, pid models.PlaylistID) string {
	msg := s.watch.TogglePlayback(pid)
	s.broadcast(ctx, pid, msg)
	return msg
}

// Control puts pid under playback control.
func (s *Service) Control(ctx context.Context, pid models.PlaylistID) error {
	if _, err := s.store.Playlists.Get(ctx, pid); err != nil {
		return err
	}
	s.watch.Control(pid)
	return nil
}

// Status returns the playback status of pid.
func (s *Service) Status(pid models.PlaylistID) watch.Status {
	return s.watch.Status(pid)
}

// RemoveItems deletes ids from pid. Viewers are told the media changed when the current
// item was removed, and always told to refresh.
func (s *Service) RemoveItems(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) error {
	removedCurrent, err := s.engine.DeleteMany(ctx, pid, ids)
	if err != nil {
		return err
	}

	if removedCurrent {
		s.broadcast(ctx, pid, watch.MsgMediaChanged)
	}
	s.broadcast(ctx, pid, watch.MsgRefresh)
	return nil
}

// MoveUp swaps every selected range with the item after it and tells viewers to refresh.
func (s *Service) MoveUp(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) error {
	if _, err := s.engine.MoveUp(ctx, pid, ids); err != nil {
		return err
	}
	s.broadcast(ctx, pid, watch.MsgRefresh)
	return nil
}

// MoveDown swaps every selected range with the item before it and tells viewers to refresh.
func (s *Service) MoveDown(ctx context.Context, pid models.PlaylistID, ids []models.ItemID) error {
	if _, err := s.engine.MoveDown(ctx, pid, ids); err != nil {
		return err
	}
	s.broadcast(ctx, pid, watch.MsgRefresh)
	return nil
}

// Check verifies the structure of pid.
func (s *Service) Check(ctx context.Context, pid models.PlaylistID) (*playlist.Report, error) {
	return s.engine.Check(ctx, pid)
}
