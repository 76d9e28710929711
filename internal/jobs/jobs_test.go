package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeBans struct {
	calls atomic.Int32
	err   error
}

func (f *fakeBans) ExpireBans(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job context has no deadline")
	}
	return 2, f.err
}

type fakeLimiter struct {
	idle []time.Duration
}

func (f *fakeLimiter) Cleanup(idle time.Duration) int {
	f.idle = append(f.idle, idle)
	return 1
}

type fakePruner struct{ calls int }

func (f *fakePruner) Prune() int { f.calls++; return 0 }

func TestNew_RegistersConfiguredJobs(t *testing.T) {
	bans := &fakeBans{}
	lim := &fakeLimiter{}
	pr := &fakePruner{}
	s, err := New(Options{
		BanSweepSpec:    "@every 1h",
		Bans:            bans,
		Limiters:        []LimiterCleaner{lim},
		CleanupInterval: 15 * time.Minute,
		Revocations:     pr,
		Logger:          zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	s.RunNow()
	assert.Equal(t, int32(1), bans.calls.Load())
	assert.Equal(t, []time.Duration{15 * time.Minute}, lim.idle)
	assert.Equal(t, 1, pr.calls)
}

func TestNew_SkipsNilComponents(t *testing.T) {
	s, err := New(Options{Bans: &fakeBans{}})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(Options{BanSweepSpec: "every now and then", Bans: &fakeBans{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ban_sweep")
}

func TestRun_ErrorIsLoggedNotPanicking(t *testing.T) {
	bans := &fakeBans{err: errors.New("db down")}
	s, err := New(Options{Bans: bans, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.NotPanics(t, s.RunNow)
	assert.Equal(t, int32(1), bans.calls.Load())
}

func TestStart_CancelledContextSkipsJobs(t *testing.T) {
	bans := &fakeBans{}
	s, err := New(Options{Bans: bans})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()
	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	s.RunNow()
	assert.Zero(t, bans.calls.Load())
}
