// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/plst/internal/shared"
)

// ErrSendFailed is returned by a [FakeConn] set to fail.
var ErrSendFailed = errors.New("send failed")

// FakeConn is a test double for a viewer connection that records every message.
type FakeConn struct {
	id    string
	mu    sync.Mutex
	msgs  []string
	fail  bool
	delay time.Duration
	reply func(msg string)
}

// NewFakeConn creates a FakeConn with the given id, or a generated one when empty.
func NewFakeConn(id string) *FakeConn {
	if id == "" {
		id = shared.GenerateID()
	}
	return &FakeConn{id: id}
}

func (c *FakeConn) ID() string { return c.id }

// Send records msg, fails when set to fail, and honours ctx while delayed.
func (c *FakeConn) Send(ctx context.Context, msg string) error {
	c.mu.Lock()
	fail, delay := c.fail, c.delay
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail {
		return ErrSendFailed
	}

	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	reply := c.reply
	c.mu.Unlock()

	if reply != nil {
		reply(msg)
	}
	return nil
}

// OnSend runs fn after every successful send, the way a viewer answers a notification.
func (c *FakeConn) OnSend(fn func(msg string)) {
	c.mu.Lock()
	c.reply = fn
	c.mu.Unlock()
}

// Fail makes every following send return [ErrSendFailed].
func (c *FakeConn) Fail() {
	c.mu.Lock()
	c.fail = true
	c.mu.Unlock()
}

// Delay makes every following send wait d before completing.
func (c *FakeConn) Delay(d time.Duration) {
	c.mu.Lock()
	c.delay = d
	c.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (c *FakeConn) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

// Last returns the last recorded message, or "".
func (c *FakeConn) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
