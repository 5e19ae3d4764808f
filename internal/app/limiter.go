package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Nocturne/internal/domain"
	"github.com/dkeye/Nocturne/internal/protocol"
)

// Limit bounds one event kind to Limit calls per sliding Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

type bucketKey struct {
	user domain.UserID
	kind protocol.EventKind
}

// Limiter is a per-(user, event kind) sliding-window counter. Buckets
// idle for ten windows are dropped by Prune so the map stays bounded
// by recently active users rather than every user ever seen.
type Limiter struct {
	mu       sync.Mutex
	history  map[bucketKey][]time.Time
	limits   map[protocol.EventKind]Limit
	fallback Limit

	now func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewLimiter(limits map[protocol.EventKind]Limit, fallback Limit) *Limiter {
	return &Limiter{
		history:  make(map[bucketKey][]time.Time),
		limits:   limits,
		fallback: fallback,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

func (l *Limiter) limitFor(kind protocol.EventKind) Limit {
	if lim, ok := l.limits[kind]; ok {
		return lim
	}
	return l.fallback
}

// Allow reports whether one more event of this kind may run now. A
// rejected call is not recorded, so hammering a closed window does
// not extend it.
func (l *Limiter) Allow(uid domain.UserID, kind protocol.EventKind) bool {
	lim := l.limitFor(kind)
	if lim.Limit <= 0 || lim.Window <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-lim.Window)
	key := bucketKey{user: uid, kind: kind}

	attempts := l.history[key]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= lim.Limit {
		l.history[key] = fresh
		log.Debug().Str("module", "app.limiter").Str("uid", string(uid)).Str("kind", string(kind)).Msg("rate limited")
		return false
	}

	l.history[key] = append(fresh, now)
	return true
}

// Prune drops buckets whose newest entry is older than ten windows.
func (l *Limiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, attempts := range l.history {
		if len(attempts) == 0 {
			delete(l.history, key)
			continue
		}
		ttl := 10 * l.limitFor(key.kind).Window
		if now.Sub(attempts[len(attempts)-1]) > ttl {
			delete(l.history, key)
		}
	}
}

// Start runs the prune loop until Stop.
func (l *Limiter) Start(interval time.Duration) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Prune()
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}
