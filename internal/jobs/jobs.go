// Package jobs runs the periodic maintenance sweeps on a cron scheduler.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 30 * time.Second

// BanSweeper deactivates bans whose expiry has passed.
type BanSweeper interface {
	ExpireBans(ctx context.Context) (int64, error)
}

// LimiterCleaner drops rate limiters that have been idle for longer than idle.
type LimiterCleaner interface {
	Cleanup(idle time.Duration) int
}

// RevocationPruner drops revoked token ids whose tokens have expired anyway.
type RevocationPruner interface {
	Prune() int
}

// Options configures a Scheduler. Nil components are skipped.
type Options struct {
	BanSweepSpec    string
	Bans            BanSweeper
	Limiters        []LimiterCleaner
	CleanupInterval time.Duration
	Revocations     RevocationPruner
	Logger          *zap.Logger
}

// Scheduler owns the cron instance and the jobs registered on it.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger

	mu  sync.Mutex
	ctx context.Context
}

// New registers the configured jobs. An invalid cron spec is an error.
func New(o Options) (*Scheduler, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	cl := cronLogger{log: log.Named("cron")}
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:  log,
		ctx:  context.Background(),
	}

	if o.Bans != nil {
		spec := o.BanSweepSpec
		if spec == "" {
			spec = "@every 1m"
		}
		if err := s.add("ban_sweep", spec, func(ctx context.Context) error {
			n, err := o.Bans.ExpireBans(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				s.log.Info("expired bans deactivated", zap.Int64("count", n))
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	interval := o.CleanupInterval
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if len(o.Limiters) > 0 {
		spec := fmt.Sprintf("@every %s", interval)
		if err := s.add("rate_limit_cleanup", spec, func(context.Context) error {
			removed := 0
			for _, l := range o.Limiters {
				removed += l.Cleanup(interval)
			}
			if removed > 0 {
				s.log.Debug("idle rate limiters removed", zap.Int("count", removed))
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if o.Revocations != nil {
		if err := s.add("revocation_prune", "@every 10m", func(context.Context) error {
			if n := o.Revocations.Prune(); n > 0 {
				s.log.Debug("revocations pruned", zap.Int("count", n))
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	base := s.ctx
	s.mu.Unlock()
	if base.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(base, jobTimeout)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Duration("took", time.Since(start)), zap.Error(err))
		return
	}
	s.log.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// RunNow executes every registered job once, synchronously.
func (s *Scheduler) RunNow() {
	for _, e := range s.cron.Entries() {
		e.WrappedJob.Run()
	}
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background. Jobs receive a context derived
// from ctx, and the scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
