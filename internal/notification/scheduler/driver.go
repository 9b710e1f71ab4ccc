package scheduler

import (
	"context"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/usecase"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

const DefaultMaxBatches = 10

// DriverConfig carries the operator-supplied limits of a run.
// The pause after a requeue comes from the recorder's retry policy.
type DriverConfig struct {
	MaxBatches int
	DryRun     bool
}

// RunOptions adjusts a single run
type RunOptions struct {
	DryRun bool
}

// RunStats summarizes one invocation of the driver
type RunStats struct {
	RunID        string        `json:"run_id"`
	DryRun       bool          `json:"dry_run"`
	Batches      int           `json:"batches"`
	Candidates   int           `json:"candidates"`
	Claimed      int           `json:"claimed"`
	Skipped      int           `json:"skipped"`
	ClaimErrors  int           `json:"claim_errors"`
	Malformed    int           `json:"malformed"`
	Sent         int           `json:"sent"`
	Requeued     int           `json:"requeued"`
	DeadLettered int           `json:"dead_lettered"`
	Invalid      int           `json:"invalid"`
	Expired      int           `json:"expired"`
	StoreErrors  int           `json:"store_errors"`
	Processed    int           `json:"processed"`
	Duration     time.Duration `json:"duration"`
}

func (s *RunStats) add(outcome usecase.Outcome) {
	s.Processed++
	switch outcome {
	case usecase.OutcomeSent:
		s.Sent++
	case usecase.OutcomeRequeued:
		s.Requeued++
	case usecase.OutcomeDeadLettered:
		s.DeadLettered++
	case usecase.OutcomeInvalid:
		s.Invalid++
	case usecase.OutcomeExpired:
		s.Expired++
	}
}

// Driver repeats claim, dispatch and record over bounded pages
type Driver struct {
	claimer    *usecase.Claimer
	dispatcher *usecase.Dispatcher
	recorder   *usecase.Recorder
	cfg        DriverConfig
	now        func() time.Time
}

func NewDriver(claimer *usecase.Claimer, dispatcher *usecase.Dispatcher, recorder *usecase.Recorder, cfg DriverConfig) *Driver {
	if cfg.MaxBatches < 1 {
		cfg.MaxBatches = DefaultMaxBatches
	}
	return &Driver{
		claimer:    claimer,
		dispatcher: dispatcher,
		recorder:   recorder,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Run drains due jobs until a page comes back short or empty, or MaxBatches
// pages have been processed. Jobs requeued during the run are not claimed
// again by the same run.
func (d *Driver) Run(ctx context.Context, opts RunOptions) (stats RunStats, err error) {
	started := d.now()
	stats = RunStats{RunID: uuid.New().String(), DryRun: d.cfg.DryRun || opts.DryRun}
	defer func() { stats.Duration = d.now().Sub(started) }()

	attempted := make(map[string]struct{})

	for batch := 1; batch <= d.cfg.MaxBatches; batch++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := d.claimer.ClaimDue(ctx, d.now(), attempted)
		if err != nil {
			return stats, fmt.Errorf("batch %d: %w", batch, err)
		}
		stats.Batches++
		stats.Candidates += page.Candidates
		stats.Claimed += len(page.Claimed)
		stats.Skipped += page.Skipped
		stats.ClaimErrors += page.Failed
		stats.Malformed += page.Malformed

		requeued := false
		for _, job := range page.Claimed {
			attempted[job.ID] = struct{}{}
			if d.process(ctx, job, stats.DryRun, &stats) == usecase.OutcomeRequeued {
				requeued = true
			}
		}

		if page.Candidates+page.Malformed < d.claimer.PageSize() {
			break
		}
		if pause := d.recorder.RetryPause(); requeued && pause > 0 && batch < d.cfg.MaxBatches {
			if err := sleep(ctx, pause); err != nil {
				return stats, err
			}
		}
	}

	zlog.Logger.Info().
		Str("component", "driver").
		Str("run_id", stats.RunID).
		Bool("dry_run", stats.DryRun).
		Int("batches", stats.Batches).
		Int("processed", stats.Processed).
		Int("sent", stats.Sent).
		Int("requeued", stats.Requeued).
		Int("dead_lettered", stats.DeadLettered).
		Int("malformed", stats.Malformed).
		Msg("run finished")

	return stats, nil
}

// process dispatches one claimed job and records the outcome. The record
// step ignores cancellation of ctx so a claimed job never stays processing.
func (d *Driver) process(ctx context.Context, job *domain.Job, dryRun bool, stats *RunStats) usecase.Outcome {
	now := d.now()
	result, dispatchErr := d.dispatcher.Dispatch(ctx, job, now, dryRun)

	outcome, err := d.recorder.Record(context.WithoutCancel(ctx), job, result, dispatchErr, now)
	if err != nil {
		stats.StoreErrors++
		zlog.Logger.Error().Err(err).Str("component", "driver").Str("job_id", job.ID).
			Str("outcome", outcome.String()).Msg("failed to record outcome")
	}
	stats.add(outcome)
	return outcome
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
