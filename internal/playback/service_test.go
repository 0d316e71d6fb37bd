package playback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/playlist"
	"github.com/desertthunder/plst/internal/shared"
	tu "github.com/desertthunder/plst/internal/testing"
	"github.com/desertthunder/plst/internal/watch"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newService(t *testing.T, controlled models.PlaylistID) *Service {
	t.Helper()
	logger := log.New(io.Discard)
	db := setupTestDB(t)
	coordinator := watch.NewCoordinator(watch.Options{Controlled: controlled, Logger: logger})
	return NewService(playlist.NewEngine(db, logger), coordinator, logger)
}

func registerMedia(t *testing.T, s *Service, n int) []models.MediaID {
	t.Helper()
	ids := make([]models.MediaID, n)
	for i := range ids {
		d := time.Duration(i+1) * time.Minute
		media, err := s.RegisterMedia(context.Background(), &models.Media{
			Title:    fmt.Sprintf("M%d", i+1),
			URL:      fmt.Sprintf("https://example.com/m%d", i+1),
			Duration: &d,
		})
		if err != nil {
			t.Fatalf("failed to register media: %v", err)
		}
		ids[i] = media.ID
	}
	return ids
}

func current(t *testing.T, s *Service, pid models.PlaylistID) models.ItemID {
	t.Helper()
	p, err := s.Playlist(context.Background(), pid)
	if err != nil {
		t.Fatalf("failed to get playlist: %v", err)
	}
	return p.Current
}

func order(t *testing.T, s *Service, pid models.PlaylistID) []models.ItemID {
	t.Helper()
	report, err := s.Check(context.Background(), pid)
	if err != nil {
		t.Fatalf("integrity check failed: %v", err)
	}
	return report.Order
}

func TestScenario(t *testing.T) {
	ctx := context.Background()
	s := newService(t, 0)
	media := registerMedia(t, s, 2)

	p, err := s.CreatePlaylist(ctx, "")
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if p.Title != models.UnnamedPlaylist {
		t.Errorf("expected %q, got %q", models.UnnamedPlaylist, p.Title)
	}

	ids, err := s.Add(ctx, p.ID, nil, QueueNext)
	if err != nil || len(ids) != 0 {
		t.Fatalf("empty add should be a no-op, got %v (%v)", ids, err)
	}
	if got, _ := s.Playlist(ctx, p.ID); got.ItemCount != 0 {
		t.Fatalf("expected 0 items, got %d", got.ItemCount)
	}

	ids, err = s.Add(ctx, p.ID, media, QueueNext)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	got, _ := s.Playlist(ctx, p.ID)
	if got.Head != ids[0] || got.Tail != ids[1] || got.ItemCount != 2 {
		t.Fatalf("expected head=%d tail=%d count=2, got %+v", ids[0], ids[1], got)
	}

	if _, err := s.GoToItem(ctx, ids[0]); err != nil {
		t.Fatalf("GoToItem: %v", err)
	}
	if c := current(t, s, p.ID); c != ids[0] {
		t.Fatalf("expected current %d, got %d", ids[0], c)
	}

	if _, err := s.Next(ctx, p.ID); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if c := current(t, s, p.ID); c != ids[1] {
		t.Fatalf("expected current %d, got %d", ids[1], c)
	}

	if _, err := s.Next(ctx, p.ID); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if c := current(t, s, p.ID); c != ids[0] {
		t.Fatalf("expected wrap to head %d, got %d", ids[0], c)
	}

	if _, err := s.Previous(ctx, p.ID); err != nil {
		t.Fatalf("Previous: %v", err)
	}
	if c := current(t, s, p.ID); c != ids[1] {
		t.Fatalf("expected wrap to tail %d, got %d", ids[1], c)
	}

	m, err := s.Media(ctx, media[0])
	if err != nil {
		t.Fatalf("Media: %v", err)
	}
	if m.Views != 2 {
		t.Errorf("expected 2 views for M1, got %d", m.Views)
	}
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()

	t.Run("empty playlist is a no-op", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "empty")

		for _, step := range []func(context.Context, models.PlaylistID) (models.ItemID, error){s.Next, s.Previous} {
			target, err := step(ctx, p.ID)
			if err != nil || target.Valid() {
				t.Errorf("expected no-op, got %d (%v)", target, err)
			}
		}
	})

	t.Run("next without current starts at head", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 3), AddToEnd)

		target, err := s.Next(ctx, p.ID)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if target != ids[0] {
			t.Errorf("expected head %d, got %d", ids[0], target)
		}
	})

	t.Run("GoToItem notifies and resets viewers", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 2), AddToEnd)

		a, b := tu.NewFakeConn("a"), tu.NewFakeConn("b")
		s.Attach(p.ID, a)
		s.Attach(p.ID, b)
		s.Coordinator().MarkFinished(p.ID, a.ID())

		if _, err := s.GoToItem(ctx, ids[1]); err != nil {
			t.Fatalf("GoToItem: %v", err)
		}
		if a.Last() != watch.MsgMediaChanged || b.Last() != watch.MsgMediaChanged {
			t.Errorf("expected media-changed for both, got %v and %v", a.Messages(), b.Messages())
		}
		if active, finished := s.Coordinator().Counts(p.ID); active != 2 || finished != 0 {
			t.Errorf("expected partition reset, got %d active and %d finished", active, finished)
		}
	})

	t.Run("GoToItem unknown item", func(t *testing.T) {
		s := newService(t, 0)

		if _, err := s.GoToItem(ctx, 404); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("queue next inserts after current", func(t *testing.T) {
		s := newService(t, 0)
		media := registerMedia(t, s, 4)
		p, _ := s.CreatePlaylist(ctx, "p")
		base, _ := s.Add(ctx, p.ID, media[:2], AddToEnd)
		s.GoToItem(ctx, base[0])

		added, err := s.Add(ctx, p.ID, media[2:], QueueNext)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}

		want := []models.ItemID{base[0], added[0], added[1], base[1]}
		if got := order(t, s, p.ID); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("add to end ignores current", func(t *testing.T) {
		s := newService(t, 0)
		media := registerMedia(t, s, 3)
		p, _ := s.CreatePlaylist(ctx, "p")
		base, _ := s.Add(ctx, p.ID, media[:2], AddToEnd)
		s.GoToItem(ctx, base[0])

		added, _ := s.Add(ctx, p.ID, media[2:], AddToEnd)
		want := []models.ItemID{base[0], base[1], added[0]}
		if got := order(t, s, p.ID); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("queue next without current falls back to tail", func(t *testing.T) {
		s := newService(t, 0)
		media := registerMedia(t, s, 2)
		p, _ := s.CreatePlaylist(ctx, "p")
		first, _ := s.Add(ctx, p.ID, media[:1], QueueNext)
		second, _ := s.Add(ctx, p.ID, media[1:], QueueNext)

		want := []models.ItemID{first[0], second[0]}
		if got := order(t, s, p.ID); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("aggregates and refresh", func(t *testing.T) {
		s := newService(t, 0)
		media := registerMedia(t, s, 3)
		p, _ := s.CreatePlaylist(ctx, "p")
		viewer := tu.NewFakeConn("")
		s.Attach(p.ID, viewer)

		if _, err := s.Add(ctx, p.ID, media, AddToEnd); err != nil {
			t.Fatalf("Add: %v", err)
		}

		got, _ := s.Playlist(ctx, p.ID)
		if got.TotalDuration != 6*time.Minute {
			t.Errorf("expected 6m, got %v", got.TotalDuration)
		}
		if viewer.Last() != watch.MsgRefresh {
			t.Errorf("expected refresh-playlist, got %v", viewer.Messages())
		}
	})

	t.Run("unknown media", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")

		if _, err := s.Add(ctx, p.ID, []models.MediaID{404}, AddToEnd); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ParsePosition", func(t *testing.T) {
		tc := []struct {
			in   string
			want Position
			ok   bool
		}{
			{"", QueueNext, true},
			{"queue-next", QueueNext, true},
			{"ADD-TO-END", AddToEnd, true},
			{"sideways", QueueNext, false},
		}
		for _, tt := range tc {
			got, ok := ParsePosition(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParsePosition(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		}
	})
}

func TestRemoveItems(t *testing.T) {
	ctx := context.Background()

	t.Run("current removed", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 3), AddToEnd)
		s.GoToItem(ctx, ids[1])
		viewer := tu.NewFakeConn("")
		s.Attach(p.ID, viewer)

		if err := s.RemoveItems(ctx, p.ID, ids[1:2]); err != nil {
			t.Fatalf("RemoveItems: %v", err)
		}

		want := []string{watch.MsgMediaChanged, watch.MsgRefresh}
		if got := viewer.Messages(); !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if c := current(t, s, p.ID); c.Valid() {
			t.Errorf("expected current cleared, got %d", c)
		}
	})

	t.Run("other item removed", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 3), AddToEnd)
		s.GoToItem(ctx, ids[1])
		viewer := tu.NewFakeConn("")
		s.Attach(p.ID, viewer)

		if err := s.RemoveItems(ctx, p.ID, []models.ItemID{ids[0], ids[2]}); err != nil {
			t.Fatalf("RemoveItems: %v", err)
		}

		if got := viewer.Messages(); !slices.Equal(got, []string{watch.MsgRefresh}) {
			t.Errorf("expected only refresh-playlist, got %v", got)
		}
		if got := order(t, s, p.ID); !slices.Equal(got, ids[1:2]) {
			t.Errorf("expected %v, got %v", ids[1:2], got)
		}
	})
}

func TestMoveItems(t *testing.T) {
	ctx := context.Background()
	s := newService(t, 0)
	p, _ := s.CreatePlaylist(ctx, "p")
	ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 4), AddToEnd)
	s.GoToItem(ctx, ids[0])
	viewer := tu.NewFakeConn("")
	s.Attach(p.ID, viewer)

	if err := s.MoveUp(ctx, p.ID, ids[:2]); err != nil {
		t.Fatalf("MoveUp: %v", err)
	}
	want := []models.ItemID{ids[2], ids[0], ids[1], ids[3]}
	if got := order(t, s, p.ID); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if err := s.MoveDown(ctx, p.ID, ids[:2]); err != nil {
		t.Fatalf("MoveDown: %v", err)
	}
	if got := order(t, s, p.ID); !slices.Equal(got, ids) {
		t.Errorf("expected original order %v, got %v", ids, got)
	}

	if got := viewer.Messages(); !slices.Equal(got, []string{watch.MsgRefresh, watch.MsgRefresh}) {
		t.Errorf("expected two refreshes, got %v", got)
	}
	if c := current(t, s, p.ID); c != ids[0] {
		t.Errorf("moves must not change current, got %d", c)
	}
}

func TestWindow(t *testing.T) {
	ctx := context.Background()
	s := newService(t, 0)
	p, _ := s.CreatePlaylist(ctx, "p")
	ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 35), AddToEnd)

	tc := []struct {
		name  string
		after models.ItemID
		limit int
		want  []models.ItemID
		next  models.ItemID
	}{
		{name: "default limit", limit: DefaultWindow, want: ids[:10], next: ids[10]},
		{name: "zero clamps to one", limit: 0, want: ids[:1], next: ids[1]},
		{name: "clamped high", limit: 100, want: ids[:30], next: ids[30]},
		{name: "negative clamps to one", limit: -5, want: ids[:1], next: ids[1]},
		{name: "after", after: ids[5], limit: 3, want: ids[5:8], next: ids[8]},
		{name: "end of list", after: ids[33], limit: 5, want: ids[33:], next: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			w, err := s.Window(ctx, p.ID, tt.after, tt.limit)
			if err != nil {
				t.Fatalf("Window: %v", err)
			}
			got := make([]models.ItemID, len(w.Entries))
			var total time.Duration
			for i, e := range w.Entries {
				got[i] = e.Item.ID
				total += e.Media.KnownDuration()
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			if w.Next != tt.next {
				t.Errorf("expected next %d, got %d", tt.next, w.Next)
			}
			if w.Duration != total {
				t.Errorf("expected duration %v, got %v", total, w.Duration)
			}
		})
	}

	t.Run("after from another playlist", func(t *testing.T) {
		other, _ := s.CreatePlaylist(ctx, "other")
		if _, err := s.Window(ctx, other.ID, ids[0], 1); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("current entry", func(t *testing.T) {
		entry, err := s.CurrentItem(ctx, p.ID)
		if err != nil || entry != nil {
			t.Fatalf("expected no current entry, got %v (%v)", entry, err)
		}

		s.GoToItem(ctx, ids[4])
		media, err := s.CurrentMedia(ctx, p.ID)
		if err != nil {
			t.Fatalf("CurrentMedia: %v", err)
		}
		if media.Title != "M5" {
			t.Errorf("expected M5, got %s", media.Title)
		}
	})
}

func TestViewerMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("advance after every viewer finished", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 2), AddToEnd)
		s.GoToItem(ctx, ids[0])

		viewers := []*tu.FakeConn{tu.NewFakeConn("a"), tu.NewFakeConn("b"), tu.NewFakeConn("c")}
		for _, v := range viewers {
			s.Attach(p.ID, v)
		}

		for _, v := range viewers[:2] {
			if err := s.HandleMessage(ctx, p.ID, v.ID(), watch.MsgNext); err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			if c := current(t, s, p.ID); c != ids[0] {
				t.Fatalf("advanced before every viewer finished")
			}
		}

		if err := s.HandleMessage(ctx, p.ID, viewers[2].ID(), watch.MsgNext); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
		if c := current(t, s, p.ID); c != ids[1] {
			t.Errorf("expected advance to %d, got %d", ids[1], c)
		}
		for _, v := range viewers {
			if v.Last() != watch.MsgMediaChanged {
				t.Errorf("%s expected media-changed, got %v", v.ID(), v.Messages())
			}
		}
	})

	t.Run("play and pause", func(t *testing.T) {
		s := newService(t, 7)
		viewer := tu.NewFakeConn("")
		s.Attach(7, viewer)

		s.HandleMessage(ctx, 7, viewer.ID(), "pause")
		if s.Status(7) != watch.StatusPaused {
			t.Errorf("expected paused, got %s", s.Status(7))
		}
		s.HandleMessage(ctx, 7, viewer.ID(), "play")
		if s.Status(7) != watch.StatusPlaying {
			t.Errorf("expected playing, got %s", s.Status(7))
		}
		if got := viewer.Messages(); !slices.Equal(got, []string{watch.MsgPause, watch.MsgPlay}) {
			t.Errorf("expected pause then play, got %v", got)
		}
	})

	t.Run("unknown message ignored", func(t *testing.T) {
		s := newService(t, 0)
		viewer := tu.NewFakeConn("")
		s.Attach(1, viewer)

		if err := s.HandleMessage(ctx, 1, viewer.ID(), "rewind"); err != nil {
			t.Errorf("unknown messages must be ignored, got %v", err)
		}
		if len(viewer.Messages()) != 0 {
			t.Errorf("expected no broadcast, got %v", viewer.Messages())
		}
	})

	t.Run("last watching viewer leaves", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 2), AddToEnd)
		s.GoToItem(ctx, ids[0])

		done, watching := tu.NewFakeConn("done"), tu.NewFakeConn("watching")
		s.Attach(p.ID, done)
		s.Attach(p.ID, watching)
		s.HandleMessage(ctx, p.ID, done.ID(), watch.MsgNext)

		if err := s.Detach(ctx, p.ID, watching.ID()); err != nil {
			t.Fatalf("Detach: %v", err)
		}
		if c := current(t, s, p.ID); c != ids[1] {
			t.Errorf("expected advance to %d, got %d", ids[1], c)
		}
	})

	t.Run("evicted viewer counts as leaving", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 2), AddToEnd)
		s.GoToItem(ctx, ids[0])

		done, watching := tu.NewFakeConn("done"), tu.NewFakeConn("watching")
		s.Attach(p.ID, done)
		s.Attach(p.ID, watching)
		s.HandleMessage(ctx, p.ID, done.ID(), watch.MsgNext)
		watching.Fail()

		s.Pause(ctx, p.ID)
		if c := current(t, s, p.ID); c != ids[1] {
			t.Errorf("expected advance to %d, got %d", ids[1], c)
		}
		if done.Last() != watch.MsgMediaChanged {
			t.Errorf("remaining viewer expected media-changed, got %v", done.Messages())
		}
		if got := s.Coordinator().Clients(p.ID); got != 1 {
			t.Errorf("expected 1 viewer left, got %d", got)
		}
	})

	t.Run("finish sent in reply to media-changed is kept", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 3), AddToEnd)

		quick, slow := tu.NewFakeConn("quick"), tu.NewFakeConn("slow")
		s.Attach(p.ID, quick)
		s.Attach(p.ID, slow)

		var once sync.Once
		quick.OnSend(func(msg string) {
			if msg == watch.MsgMediaChanged {
				once.Do(func() { s.HandleMessage(ctx, p.ID, quick.ID(), watch.MsgNext) })
			}
		})

		if _, err := s.GoToItem(ctx, ids[1]); err != nil {
			t.Fatalf("GoToItem: %v", err)
		}
		if active, finished := s.Coordinator().Counts(p.ID); active != 1 || finished != 1 {
			t.Fatalf("expected the quick finish to survive, got %d active and %d finished", active, finished)
		}

		if err := s.HandleMessage(ctx, p.ID, slow.ID(), watch.MsgNext); err != nil {
			t.Fatalf("HandleMessage: %v", err)
		}
		if c := current(t, s, p.ID); c != ids[2] {
			t.Errorf("expected advance to %d, got %d", ids[2], c)
		}
	})

	t.Run("draining never advances", func(t *testing.T) {
		s := newService(t, 0)
		p, _ := s.CreatePlaylist(ctx, "p")
		ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, 2), AddToEnd)
		s.GoToItem(ctx, ids[0])

		done, watching, broken := tu.NewFakeConn("done"), tu.NewFakeConn("watching"), tu.NewFakeConn("broken")
		for _, v := range []*tu.FakeConn{done, watching, broken} {
			s.Attach(p.ID, v)
		}
		s.HandleMessage(ctx, p.ID, done.ID(), watch.MsgNext)
		s.HandleMessage(ctx, p.ID, watching.ID(), watch.MsgNext)

		s.Drain()
		broken.Fail()
		s.Pause(ctx, p.ID)
		if err := s.Detach(ctx, p.ID, done.ID()); err != nil {
			t.Fatalf("Detach: %v", err)
		}

		if c := current(t, s, p.ID); c != ids[0] {
			t.Errorf("expected current to stay %d while draining, got %d", ids[0], c)
		}
	})
}

func TestPlaybackControl(t *testing.T) {
	ctx := context.Background()
	s := newService(t, 0)
	p, _ := s.CreatePlaylist(ctx, "p")
	viewer := tu.NewFakeConn("")
	s.Attach(p.ID, viewer)

	if msg := s.TogglePlayback(ctx, p.ID); msg != watch.MsgPlayPause {
		t.Errorf("uncontrolled toggle should send %s, got %s", watch.MsgPlayPause, msg)
	}

	if err := s.Control(ctx, p.ID); err != nil {
		t.Fatalf("Control: %v", err)
	}
	if msg := s.TogglePlayback(ctx, p.ID); msg != watch.MsgPause {
		t.Errorf("expected %s, got %s", watch.MsgPause, msg)
	}
	if msg := s.Play(ctx, p.ID); msg != watch.MsgPlay {
		t.Errorf("expected %s, got %s", watch.MsgPlay, msg)
	}

	want := []string{watch.MsgPlayPause, watch.MsgPause, watch.MsgPlay}
	if got := viewer.Messages(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if err := s.Control(ctx, 404); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlaylistLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newService(t, 0)
	p, _ := s.CreatePlaylist(ctx, "before")
	viewer := tu.NewFakeConn("")
	s.Attach(p.ID, viewer)

	if err := s.RenamePlaylist(ctx, p.ID, "after"); err != nil {
		t.Fatalf("RenamePlaylist: %v", err)
	}
	if viewer.Last() != watch.MsgMetadataChanged {
		t.Errorf("expected metadata-changed, got %v", viewer.Messages())
	}

	list, err := s.Playlists(ctx, 0, 10)
	if err != nil || len(list) != 1 || list[0].Title != "after" {
		t.Fatalf("unexpected list %v (%v)", list, err)
	}

	if err := s.DeletePlaylist(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlaylist: %v", err)
	}
	if _, err := s.Playlist(ctx, p.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	t.Run("RegisterMedia dedupes by url", func(t *testing.T) {
		first, err := s.RegisterMedia(ctx, &models.Media{Title: "a", URL: "u"})
		if err != nil {
			t.Fatalf("RegisterMedia: %v", err)
		}
		second, err := s.RegisterMedia(ctx, &models.Media{Title: "b", URL: "u"})
		if err != nil {
			t.Fatalf("RegisterMedia: %v", err)
		}
		if first.ID != second.ID {
			t.Errorf("expected same media, got %d and %d", first.ID, second.ID)
		}

		if _, err := s.RegisterMedia(ctx, &models.Media{URL: "no-title"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s := newService(t, 0)
	p, _ := s.CreatePlaylist(ctx, "long")
	ids, _ := s.Add(ctx, p.ID, registerMedia(t, s, MaxWindow+5), AddToEnd)
	s.GoToItem(ctx, ids[3])

	export, err := s.Export(ctx, p.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(export.Entries) != len(ids) {
		t.Fatalf("expected %d entries, got %d", len(ids), len(export.Entries))
	}
	for i, e := range export.Entries {
		if e.Item.ID != ids[i] {
			t.Fatalf("entry %d: expected item %d, got %d", i, ids[i], e.Item.ID)
		}
	}
	if export.Playlist.Current != ids[3] || !export.IsCurrent(export.Entries[3]) {
		t.Errorf("expected entry 3 to be current")
	}

	empty, _ := s.CreatePlaylist(ctx, "empty")
	export, err = s.Export(ctx, empty.ID)
	if err != nil || len(export.Entries) != 0 {
		t.Errorf("expected empty export, got %v (%v)", export, err)
	}
}
