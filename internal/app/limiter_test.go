package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dkeye/Nocturne/internal/protocol"
)

func newTestLimiter(limits map[protocol.EventKind]Limit, fallback Limit) (*Limiter, *fakeClock) {
	l := NewLimiter(limits, fallback)
	clock := newFakeClock()
	l.now = clock.now
	return l, clock
}

func TestLimiterSlidingWindow(t *testing.T) {
	l, clock := newTestLimiter(nil, Limit{Limit: 5, Window: time.Minute})

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow("u1", protocol.KindSendMessage), "call %d within the window must pass", i+1)
		clock.advance(time.Second)
	}
	assert.False(t, l.Allow("u1", protocol.KindSendMessage), "6th call within the window must be rejected")

	clock.advance(time.Minute)
	assert.True(t, l.Allow("u1", protocol.KindSendMessage), "a new window must admit again")
}

func TestLimiterRejectionNotRecorded(t *testing.T) {
	l, clock := newTestLimiter(nil, Limit{Limit: 2, Window: time.Minute})

	assert.True(t, l.Allow("u1", protocol.KindSendMessage))
	assert.True(t, l.Allow("u1", protocol.KindSendMessage))
	for i := 0; i < 10; i++ {
		assert.False(t, l.Allow("u1", protocol.KindSendMessage))
	}
	// Hammering a closed window must not extend it.
	clock.advance(time.Minute + time.Second)
	assert.True(t, l.Allow("u1", protocol.KindSendMessage))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(map[protocol.EventKind]Limit{
		protocol.KindCreateRoom: {Limit: 1, Window: time.Minute},
	}, Limit{Limit: 5, Window: time.Minute})

	assert.True(t, l.Allow("u1", protocol.KindCreateRoom))
	assert.False(t, l.Allow("u1", protocol.KindCreateRoom), "per-kind limit applies")
	assert.True(t, l.Allow("u1", protocol.KindSendMessage), "other kinds keep their own bucket")
	assert.True(t, l.Allow("u2", protocol.KindCreateRoom), "other users keep their own bucket")
}

func TestLimiterZeroConfigAllowsAll(t *testing.T) {
	l, _ := newTestLimiter(nil, Limit{})
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("u1", protocol.KindPing))
	}
}

func TestLimiterPruneDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(nil, Limit{Limit: 5, Window: time.Minute})

	l.Allow("u1", protocol.KindSendMessage)
	l.Allow("u2", protocol.KindSendMessage)
	assert.Len(t, l.history, 2)

	clock.advance(5 * time.Minute)
	l.Allow("u2", protocol.KindSendMessage)
	clock.advance(6 * time.Minute)

	l.Prune()
	assert.Len(t, l.history, 1, "bucket idle past the TTL must be dropped")
	_, kept := l.history[bucketKey{user: "u2", kind: protocol.KindSendMessage}]
	assert.True(t, kept)
}
