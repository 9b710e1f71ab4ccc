package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/wb-go/wbf/zlog"
)

//go:generate mockgen -source=scheduler.go -destination=../../mocks/scheduler/scheduler_mock.go -package=mocks

// Runner is anything that performs one dispatch run
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (RunStats, error)
}

// DispatchScheduler invokes a Runner on a fixed interval
type DispatchScheduler struct {
	runner   Runner
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	started  bool
	done     chan struct{}
}

// NewDispatchScheduler creates a new scheduler
func NewDispatchScheduler(runner Runner, interval time.Duration) *DispatchScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &DispatchScheduler{
		runner:   runner,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *DispatchScheduler) Start(ctx context.Context) {
	zlog.Logger.Info().Str("component", "scheduler").Dur("interval", s.interval).Msg("starting dispatch scheduler")
	s.started = true

	go func() {
		defer close(s.done)

		// Run immediately on start
		s.runOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-ctx.Done():
				zlog.Logger.Info().Str("component", "scheduler").Msg("context done, scheduler stopped")
				return
			case <-s.stopChan:
				zlog.Logger.Info().Str("component", "scheduler").Msg("scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler and waits for the current run
func (s *DispatchScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.started {
		<-s.done
	}
}

func (s *DispatchScheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx, RunOptions{}); err != nil {
		zlog.Logger.Error().Err(err).Str("component", "scheduler").Msg("dispatch run failed")
	}
}
