package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/repository"
	"notify-dispatcher/internal/notification/retry"

	wbfretry "github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// Outcome is what happened to a claimed job
type Outcome int

const (
	OutcomeSent Outcome = iota + 1
	OutcomeRequeued
	OutcomeDeadLettered
	OutcomeInvalid
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeRequeued:
		return "requeued"
	case OutcomeDeadLettered:
		return "dead-lettered"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Recorder persists the result of a dispatch attempt
type Recorder struct {
	repo     repository.Repository
	policy   retry.Policy
	strategy wbfretry.Strategy
}

func NewRecorder(repo repository.Repository, policy retry.Policy, strategy wbfretry.Strategy) *Recorder {
	if strategy.Attempts < 1 {
		strategy.Attempts = 1
	}
	return &Recorder{repo: repo, policy: policy, strategy: strategy}
}

// RetryPause is the delay the driver waits before claiming again after a requeue
func (r *Recorder) RetryPause() time.Duration {
	return r.policy.Pause
}

// Record applies the state machine to a claimed job given the dispatch result.
// The returned error reports store writes that failed even after retrying;
// the outcome is still the transition that was attempted.
func (r *Recorder) Record(ctx context.Context, job *domain.Job, result string, dispatchErr error, at time.Time) (Outcome, error) {
	switch {
	case dispatchErr == nil:
		return OutcomeSent, r.recordSuccess(ctx, job, result, at)
	case errors.Is(dispatchErr, domain.ErrMissingTarget):
		return OutcomeInvalid, r.recordRejected(ctx, job, domain.ResultMissingTarget, at)
	case errors.Is(dispatchErr, domain.ErrJobExpired):
		return OutcomeExpired, r.recordRejected(ctx, job, domain.ResultExpired, at)
	default:
		return r.recordFailure(ctx, job, dispatchErr, at)
	}
}

func (r *Recorder) recordSuccess(ctx context.Context, job *domain.Job, result string, at time.Time) error {
	record := domain.NewHistoryRecord(job, result, at)
	if err := r.write(func() error { return r.repo.AppendHistory(ctx, record) }); err != nil {
		return fmt.Errorf("append history for job %s: %w", job.ID, err)
	}
	if err := r.write(func() error { return r.repo.MarkSent(ctx, job.ID, result, at) }); err != nil {
		return fmt.Errorf("mark job %s sent: %w", job.ID, err)
	}

	zlog.Logger.Info().Str("component", "recorder").Str("job_id", job.ID).Str("result", result).Msg("job sent")
	return nil
}

// recordRejected handles jobs refused before any network call: no attempt is
// counted and nothing is dead-lettered.
func (r *Recorder) recordRejected(ctx context.Context, job *domain.Job, result string, at time.Time) error {
	if err := r.write(func() error { return r.repo.MarkError(ctx, job.ID, job.AttemptCount, result, at) }); err != nil {
		return fmt.Errorf("mark job %s rejected: %w", job.ID, err)
	}

	zlog.Logger.Warn().Str("component", "recorder").Str("job_id", job.ID).Str("result", result).Msg("job rejected")
	return nil
}

func (r *Recorder) recordFailure(ctx context.Context, job *domain.Job, dispatchErr error, at time.Time) (Outcome, error) {
	code, class := retry.ClassifyError(dispatchErr)
	attempts := job.AttemptCount + 1
	message := dispatchErr.Error()

	if r.policy.Decide(class, job.AttemptCount) == retry.Requeue {
		if err := r.write(func() error { return r.repo.MarkQueued(ctx, job.ID, attempts, message, at) }); err != nil {
			return OutcomeRequeued, fmt.Errorf("requeue job %s: %w", job.ID, err)
		}
		zlog.Logger.Warn().Str("component", "recorder").Str("job_id", job.ID).Str("code", string(code)).
			Int("attempt", attempts).Msg("dispatch failed, job requeued")
		return OutcomeRequeued, nil
	}

	if err := r.write(func() error { return r.repo.MarkError(ctx, job.ID, attempts, message, at) }); err != nil {
		return OutcomeDeadLettered, fmt.Errorf("mark job %s failed: %w", job.ID, err)
	}

	record := &domain.DeadLetterRecord{
		JobID:        job.ID,
		Payload:      job.Clone(),
		Error:        message,
		Code:         string(code),
		AttemptCount: attempts,
		FailedAt:     at,
	}
	if err := r.write(func() error { return r.repo.AppendDeadLetter(ctx, record) }); err != nil {
		return OutcomeDeadLettered, fmt.Errorf("dead-letter job %s: %w", job.ID, err)
	}

	zlog.Logger.Error().Str("component", "recorder").Str("job_id", job.ID).Str("code", string(code)).
		Str("class", class.String()).Int("attempt", attempts).Msg("dispatch failed, job dead-lettered")
	return OutcomeDeadLettered, nil
}

func (r *Recorder) write(fn func() error) error {
	return wbfretry.Do(fn, r.strategy)
}
