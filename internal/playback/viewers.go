package playback

import (
	"context"
	"strings"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/watch"
)

// Attach registers a viewer connection for pid.
func (s *Service) Attach(pid models.PlaylistID, conn watch.Conn) {
	s.watch.Attach(pid, conn)
}

// Detach removes a viewer. When it was the last viewer still watching, the rest advance.
func (s *Service) Detach(ctx context.Context, pid models.PlaylistID, connID string) error {
	if !s.watch.Detach(pid, connID) {
		return nil
	}
	return s.advance(ctx, pid)
}

// Drain stops advances driven by viewers leaving or finishing. The server calls it before it
// closes the sockets on shutdown, so a restart never moves the current item.
func (s *Service) Drain() {
	s.draining.Store(true)
}

// advance moves pid to its next item after the viewer barrier fired.
func (s *Service) advance(ctx context.Context, pid models.PlaylistID) error {
	if s.draining.Load() {
		s.logger.Debug("not advancing while draining", "playlist", pid)
		return nil
	}
	_, err := s.Next(ctx, pid)
	return err
}

// broadcast notifies the viewers of pid. A failed send that removed the last viewer still
// watching counts as that viewer leaving.
func (s *Service) broadcast(ctx context.Context, pid models.PlaylistID, msg string) {
	if !s.watch.Broadcast(ctx, pid, msg).Advance {
		return
	}
	if err := s.advance(ctx, pid); err != nil {
		s.logger.Error("advance after eviction failed", "playlist", pid, "err", err)
	}
}

// HandleMessage serves one inbound text message from a viewer.
//
// "next" marks the viewer finished and advances once every viewer has finished. "play" and
// "pause" change playback. Anything else is logged and ignored.
func (s *Service) HandleMessage(ctx context.Context, pid models.PlaylistID, connID, msg string) error {
	switch strings.TrimSpace(msg) {
	case watch.MsgNext:
		if s.watch.MarkFinished(pid, connID) {
			return s.advance(ctx, pid)
		}
	case watch.MsgPlay:
		s.Play(ctx, pid)
	case watch.MsgPause:
		s.Pause(ctx, pid)
	default:
		s.logger.Warn("ignoring unknown viewer message", "playlist", pid, "conn", connID, "message", msg)
	}
	return nil
}
