package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dkeye/Nocturne/internal/core"
	"github.com/dkeye/Nocturne/internal/domain"
)

// fakeConn records every frame it is asked to deliver.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errFakeSend
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

var errFakeSend = &core.Error{Code: core.CodeInternal, Reason: "fake send failure"}

// kinds decodes the type tag of every recorded frame.
func (c *fakeConn) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &env)
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) hasKind(kind string) bool {
	for _, k := range c.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// fakeTimer captures scheduled evictions so tests fire them by hand.
type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) afterFunc(_ time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: f}
	s.timers = append(s.timers, t)
	return t
}

// fire runs the i-th scheduled callback regardless of Stop, the way
// a real timer that already fired would.
func (s *fakeScheduler) fire(i int) {
	s.mu.Lock()
	t := s.timers[i]
	s.mu.Unlock()
	t.fn()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestSession(sid, uid, name string) (*Session, *fakeConn) {
	conn := &fakeConn{}
	user := &domain.User{ID: domain.UserID(uid), DisplayName: name}
	return NewSession(core.SessionID(sid), user, conn), conn
}
