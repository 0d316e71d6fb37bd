package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a websocket to the coordinator's connection handle.
// Writes are serialized, the socket allows one writer at a time.
type wsConn struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (c *wsConn) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *wsConn) close(code int, reason string) {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// watch upgrades a viewer to a socket attached to the playlist in the path.
//
// The socket receives state change notifications as text messages and may send "next",
// "play" or "pause". It is detached when the read loop ends.
func (s *Server) watch(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID[models.PlaylistID](r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.service.Playlist(r.Context(), pid); err != nil {
		s.fail(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("socket upgrade failed", "playlist", pid, "err", err)
		return
	}

	c := &wsConn{id: shared.GenerateID(), conn: conn}
	if !s.track(c) {
		c.close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer s.untrack(c)

	s.service.Attach(pid, c)
	s.logger.Debug("viewer attached", "playlist", pid, "conn", c.id)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go s.keepAlive(ctx, c)

	s.readLoop(ctx, pid, c)

	if err := s.service.Detach(ctx, pid, c.id); err != nil {
		s.logger.Error("advance after detach failed", "playlist", pid, "conn", c.id, "err", err)
	}
	_ = conn.Close()
	s.logger.Debug("viewer detached", "playlist", pid, "conn", c.id)
}

func (s *Server) readLoop(ctx context.Context, pid models.PlaylistID, c *wsConn) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				s.logger.Debug("socket closed", "playlist", pid, "conn", c.id, "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if err := s.service.HandleMessage(ctx, pid, c.id, string(data)); err != nil {
			s.logger.Error("viewer message failed", "playlist", pid, "conn", c.id, "err", err)
		}
	}
}

func (s *Server) keepAlive(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}

// track registers an open socket. It refuses new sockets once the server is closing.
func (s *Server) track(c *wsConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	if s.sockets == nil {
		s.sockets = make(map[*wsConn]struct{})
	}
	s.sockets[c] = struct{}{}
	s.handlers.Add(1)
	return true
}

func (s *Server) untrack(c *wsConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, c)
	s.handlers.Done()
}

// closeSockets stops viewer-driven advances, then ends every open socket, which unblocks
// their read loops.
func (s *Server) closeSockets() {
	s.service.Drain()

	s.mu.Lock()
	s.closing = true
	open := make([]*wsConn, 0, len(s.sockets))
	for c := range s.sockets {
		open = append(open, c)
	}
	s.mu.Unlock()

	for _, c := range open {
		c.close(websocket.CloseGoingAway, "server shutting down")
	}
	if len(open) > 0 {
		s.logger.Info("closed viewer sockets", "count", len(open))
	}
}

// waitSockets blocks until every socket handler returned or ctx is done.
func (s *Server) waitSockets(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
