// Package watch coordinates live viewers of shared playlists.
//
// Every playlist has a room holding its attached connections split into an active and a
// finished set, plus its playback status. A room is created on first use and guarded by its
// own mutex, so rooms of different playlists never contend. Broadcasts snapshot the room,
// release the lock and send to every connection in parallel with a per-send timeout.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plst/internal/metrics"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/shared"
	"golang.org/x/sync/semaphore"
)

// Messages sent to viewers.
const (
	MsgMediaChanged    = "media-changed"
	MsgRefresh         = "refresh-playlist"
	MsgMetadataChanged = "metadata-changed"
	MsgPlay            = "play"
	MsgPause           = "pause"
	MsgPlayPause       = "playpause"
)

// MsgNext is sent by a viewer when it finished the current item.
const MsgNext = "next"

const (
	defaultSendTimeout = 5 * time.Second
	defaultMaxParallel = 16
)

// Conn is a send-capable handle for one attached viewer.
type Conn interface {
	ID() string
	Send(ctx context.Context, msg string) error
}

// Status is the playback state of a playlist.
type Status int

const (
	// StatusStopped means the playlist is not under playback control.
	StatusStopped Status = iota
	StatusPlaying
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "stopped"
	}
}

// Options configures a [Coordinator].
type Options struct {
	// Controlled is the playlist under playback control at start. Zero for none.
	Controlled  models.PlaylistID
	SendTimeout time.Duration
	MaxParallel int
	Logger      *log.Logger
}

type room struct {
	mu       sync.Mutex
	active   map[string]Conn
	finished map[string]Conn
	status   Status
}

func (r *room) size() int {
	return len(r.active) + len(r.finished)
}

// remove drops id from both sets and reports which one held it.
func (r *room) remove(id string) (wasActive, wasFinished bool) {
	_, wasActive = r.active[id]
	_, wasFinished = r.finished[id]
	delete(r.active, id)
	delete(r.finished, id)
	return wasActive, wasFinished
}

// release fires the barrier after an active connection left: when nobody is left watching
// but some viewers already finished, the room is reset and true is returned.
func (r *room) release() bool {
	if len(r.active) > 0 || len(r.finished) == 0 {
		return false
	}
	r.reset()
	return true
}

// reset moves every finished connection back to active.
func (r *room) reset() {
	for id, conn := range r.finished {
		r.active[id] = conn
		delete(r.finished, id)
	}
}

// Coordinator is the per-playlist registry of viewer connections.
type Coordinator struct {
	mu         sync.Mutex
	rooms      map[models.PlaylistID]*room
	controlled models.PlaylistID

	sendTimeout time.Duration
	maxParallel int64
	logger      *log.Logger
}

// NewCoordinator creates an empty Coordinator.
func NewCoordinator(opts Options) *Coordinator {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Coordinator{
		rooms:       make(map[models.PlaylistID]*room),
		controlled:  opts.Controlled,
		sendTimeout: opts.SendTimeout,
		maxParallel: int64(opts.MaxParallel),
		logger:      shared.WithLogger(opts.Logger, "component", "watch"),
	}
}

// room returns the room of pid, creating it when create is set.
func (c *Coordinator) room(pid models.PlaylistID, create bool) *room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomLocked(pid, create)
}

// roomLocked is room with c.mu held.
func (c *Coordinator) roomLocked(pid models.PlaylistID, create bool) *room {
	r, ok := c.rooms[pid]
	if !ok && create {
		r = &room{
			active:   make(map[string]Conn),
			finished: make(map[string]Conn),
		}
		if pid == c.controlled {
			r.status = StatusPlaying
		}
		c.rooms[pid] = r
	}
	return r
}

// Attach registers conn as an active viewer of pid.
//
// The room is looked up and filled under the registry lock so [Coordinator.Prune] cannot
// drop it in between.
func (c *Coordinator) Attach(pid models.PlaylistID, conn Conn) {
	c.mu.Lock()
	r := c.roomLocked(pid, true)
	r.mu.Lock()
	wasActive, wasFinished := r.remove(conn.ID())
	r.active[conn.ID()] = conn
	r.mu.Unlock()
	c.mu.Unlock()

	if !wasActive && !wasFinished {
		metrics.ActiveConnections.Inc()
	}
	c.logger.Debug("viewer attached", "playlist", pid, "conn", conn.ID())
}

// Detach removes a connection from pid. Unknown ids are ignored.
//
// Returns true when the removed connection was the last active one while others had already
// finished. The room is reset in that case and the caller should advance.
func (c *Coordinator) Detach(pid models.PlaylistID, id string) bool {
	r := c.room(pid, false)
	if r == nil {
		return false
	}

	r.mu.Lock()
	wasActive, wasFinished := r.remove(id)
	advance := wasActive && r.release()
	r.mu.Unlock()

	if wasActive || wasFinished {
		metrics.ActiveConnections.Dec()
		c.logger.Debug("viewer detached", "playlist", pid, "conn", id)
	}
	if advance {
		metrics.BarrierAdvancesTotal.Inc()
	}
	return advance
}

// MarkFinished moves a connection from active to finished.
//
// Returns true exactly once per item: when the last active connection finishes. Every
// connection is then reset to active. No barrier fires when nothing was active.
func (c *Coordinator) MarkFinished(pid models.PlaylistID, id string) bool {
	r := c.room(pid, false)
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.active) == 0 {
		return false
	}

	if conn, ok := r.active[id]; ok {
		delete(r.active, id)
		r.finished[id] = conn
	}

	if len(r.active) > 0 {
		return false
	}

	r.reset()
	metrics.BarrierAdvancesTotal.Inc()
	c.logger.Debug("all viewers finished", "playlist", pid, "viewers", len(r.active))
	return true
}

// Reset moves every finished connection of pid back to active.
func (c *Coordinator) Reset(pid models.PlaylistID) {
	r := c.room(pid, false)
	if r == nil {
		return
	}

	r.mu.Lock()
	r.reset()
	r.mu.Unlock()
}

// Delivery is the outcome of a [Coordinator.Broadcast].
type Delivery struct {
	// Sent counts the connections that received the message.
	Sent int
	// Evicted counts the connections removed after a failed send.
	Evicted int
	// Advance is set when an evicted connection was the last one still watching while others
	// had finished. The room is reset and the caller should advance, as after [Coordinator.Detach].
	Advance bool
}

// Broadcast sends msg to every connection of pid.
//
// Sends run in parallel without holding the room lock, each bounded by the send timeout.
// Connections whose send fails are detached afterwards. Failures are never returned.
func (c *Coordinator) Broadcast(ctx context.Context, pid models.PlaylistID, msg string) Delivery {
	r := c.room(pid, false)
	if r == nil {
		return Delivery{}
	}

	r.mu.Lock()
	conns := make([]Conn, 0, r.size())
	for _, conn := range r.active {
		conns = append(conns, conn)
	}
	for _, conn := range r.finished {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	metrics.BroadcastsTotal.WithLabelValues(msg).Inc()
	if len(conns) == 0 {
		return Delivery{}
	}

	start := time.Now()
	sent, failed := c.sendAll(ctx, conns, msg)
	metrics.BroadcastDuration.Observe(time.Since(start).Seconds())

	d := Delivery{Sent: sent}
	if len(failed) > 0 {
		leftActive := false
		r.mu.Lock()
		for _, conn := range failed {
			cur, ok := r.active[conn.ID()]
			if !ok {
				cur, ok = r.finished[conn.ID()]
			}
			if !ok || cur != conn {
				continue
			}
			wasActive, _ := r.remove(conn.ID())
			leftActive = leftActive || wasActive
			d.Evicted++
		}
		d.Advance = leftActive && r.release()
		r.mu.Unlock()

		metrics.ActiveConnections.Sub(float64(d.Evicted))
		metrics.SendFailuresTotal.Add(float64(len(failed)))
		if d.Advance {
			metrics.BarrierAdvancesTotal.Inc()
		}
	}

	c.logger.Debug("broadcast", "playlist", pid, "message", msg, "sent", d.Sent, "evicted", d.Evicted, "advance", d.Advance)
	return d
}

// sendAll delivers msg to conns with bounded parallelism. It returns how many sends succeeded
// and the connections whose send failed. Sends never started after ctx ends count as neither.
func (c *Coordinator) sendAll(ctx context.Context, conns []Conn, msg string) (int, []Conn) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sent   int
		failed []Conn
	)

	sem := semaphore.NewWeighted(c.maxParallel)
	for i, conn := range conns {
		if err := sem.Acquire(ctx, 1); err != nil {
			c.logger.Warn("broadcast cancelled", "message", msg, "pending", len(conns)-i, "err", err)
			break
		}

		wg.Add(1)
		go func(conn Conn) {
			defer wg.Done()
			defer sem.Release(1)

			sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
			defer cancel()

			err := conn.Send(sendCtx, msg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && ctx.Err() != nil {
				return
			}
			if err != nil {
				c.logger.Info("closing connection after failed send", "conn", conn.ID(), "err", err)
				failed = append(failed, conn)
				return
			}
			sent++
		}(conn)
	}
	wg.Wait()
	return sent, failed
}

// Control puts pid under playback control in the playing state.
// The previously controlled playlist, if any, is stopped.
func (c *Coordinator) Control(pid models.PlaylistID) {
	c.mu.Lock()
	previous := c.controlled
	c.controlled = pid
	c.mu.Unlock()

	if previous != pid {
		if r := c.room(previous, false); r != nil {
			r.mu.Lock()
			r.status = StatusStopped
			r.mu.Unlock()
		}
	}

	r := c.room(pid, true)
	r.mu.Lock()
	r.status = StatusPlaying
	r.mu.Unlock()
	c.logger.Info("playlist under playback control", "playlist", pid)
}

// Controlled returns the playlist under playback control, or zero.
func (c *Coordinator) Controlled() models.PlaylistID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controlled
}

// SetPlaybackStatus switches pid between playing and paused when it is under control.
// Returns the message to broadcast, which is always [MsgPlay] or [MsgPause].
func (c *Coordinator) SetPlaybackStatus(pid models.PlaylistID, playing bool) string {
	r := c.room(pid, true)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusStopped {
		if playing {
			r.status = StatusPlaying
		} else {
			r.status = StatusPaused
		}
	}

	if playing {
		return MsgPlay
	}
	return MsgPause
}

// TogglePlayback flips pid between playing and paused and returns the message to broadcast.
// A playlist not under control is left stopped and gets [MsgPlayPause].
func (c *Coordinator) TogglePlayback(pid models.PlaylistID) string {
	r := c.room(pid, true)

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusPlaying:
		r.status = StatusPaused
		return MsgPause
	case StatusPaused:
		r.status = StatusPlaying
		return MsgPlay
	default:
		return MsgPlayPause
	}
}

// Status returns the playback status of pid.
func (c *Coordinator) Status(pid models.PlaylistID) Status {
	r := c.room(pid, false)
	if r == nil {
		if pid == c.Controlled() {
			return StatusPlaying
		}
		return StatusStopped
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Clients returns the number of connections attached to pid.
func (c *Coordinator) Clients(pid models.PlaylistID) int {
	active, finished := c.Counts(pid)
	return active + finished
}

// Counts returns the sizes of the active and finished sets of pid.
func (c *Coordinator) Counts(pid models.PlaylistID) (active, finished int) {
	r := c.room(pid, false)
	if r == nil {
		return 0, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active), len(r.finished)
}

// Prune drops rooms that have no connections and default status.
func (c *Coordinator) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for pid, r := range c.rooms {
		r.mu.Lock()
		idle := r.size() == 0 && pid != c.controlled
		r.mu.Unlock()
		if idle {
			delete(c.rooms, pid)
			pruned++
		}
	}
	return pruned
}
