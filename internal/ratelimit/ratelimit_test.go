package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(rps float64, burst int) (*Limiter, *fakeClock) {
	c := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New(rps, burst)
	l.now = c.now
	return l, c
}

func TestAllow_BurstThenRefill(t *testing.T) {
	l, clock := newTestLimiter(1, 3)

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("ip:1")
		require.True(t, ok, "request %d", i)
	}
	ok, retry := l.Allow("ip:1")
	assert.False(t, ok)
	assert.InDelta(t, time.Second, retry, float64(10*time.Millisecond))

	// A rejected request must not consume future tokens.
	clock.advance(time.Second)
	ok, _ = l.Allow("ip:1")
	assert.True(t, ok)
	ok, _ = l.Allow("ip:1")
	assert.False(t, ok)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(1, 1)

	ok, _ := l.Allow("user:1")
	assert.True(t, ok)
	ok, _ = l.Allow("user:1")
	assert.False(t, ok)
	ok, _ = l.Allow("user:2")
	assert.True(t, ok)
	assert.Equal(t, 2, l.Len())
}

func TestAllow_ZeroRate(t *testing.T) {
	l, _ := newTestLimiter(0, 1)
	ok, _ := l.Allow("k")
	assert.True(t, ok)
	ok, retry := l.Allow("k")
	assert.False(t, ok)
	assert.Positive(t, retry)
}

func TestCleanup_RemovesIdle(t *testing.T) {
	l, clock := newTestLimiter(10, 10)
	l.Allow("old")
	clock.advance(20 * time.Minute)
	l.Allow("fresh")
	clock.advance(15 * time.Minute)

	removed := l.Cleanup(30 * time.Minute)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, l.Len())

	clock.advance(time.Hour)
	assert.Equal(t, 1, l.Cleanup(30*time.Minute))
	assert.Zero(t, l.Len())
}
