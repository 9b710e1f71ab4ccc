package usecase

import (
	"context"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/repository"

	"github.com/wb-go/wbf/zlog"
)

const DefaultPageSize = 50

// ClaimResult describes one page of due jobs
type ClaimResult struct {
	// Candidates is the number of due jobs the page query returned,
	// after removing excluded ids. Together with Malformed, a value below
	// the page size means the due set is exhausted for this run.
	Candidates int
	Claimed    []*domain.Job
	Skipped    int // lost to a concurrent claimer
	Failed     int // claim transaction errored; the job is left queued
	// Malformed counts due documents that could not be decoded. They are
	// moved to error so they stop occupying the head of the queue.
	Malformed  int
}

// Claimer turns due jobs into processing jobs owned by this worker
type Claimer struct {
	repo     repository.JobRepository
	pageSize int
}

func NewClaimer(repo repository.JobRepository, pageSize int) *Claimer {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Claimer{repo: repo, pageSize: pageSize}
}

func (c *Claimer) PageSize() int {
	return c.pageSize
}

// ClaimDue queries a page of due jobs and claims each in its own transaction.
// Jobs in exclude are ignored, the page is widened by their count so that
// they do not occupy slots.
func (c *Claimer) ClaimDue(ctx context.Context, now time.Time, exclude map[string]struct{}) (ClaimResult, error) {
	var result ClaimResult

	due, err := c.repo.FindDue(ctx, now, c.pageSize+len(exclude))
	if err != nil {
		return result, fmt.Errorf("find due jobs: %w", err)
	}

	for _, id := range due.Malformed {
		result.Malformed++
		if err := c.repo.MarkError(ctx, id, 0, domain.ResultMalformed, now); err != nil {
			zlog.Logger.Error().Err(err).Str("component", "claimer").Str("job_id", id).
				Msg("failed to quarantine malformed job")
			continue
		}
		zlog.Logger.Warn().Str("component", "claimer").Str("job_id", id).
			Msg("malformed job moved to error")
	}

	candidates := make([]*domain.Job, 0, len(due.Jobs))
	for _, job := range due.Jobs {
		if _, skip := exclude[job.ID]; skip {
			continue
		}
		if len(candidates) == c.pageSize {
			break
		}
		candidates = append(candidates, job)
	}
	result.Candidates = len(candidates)

	for _, candidate := range candidates {
		job, err := c.repo.Claim(ctx, candidate.ID, now)
		if err != nil {
			result.Failed++
			zlog.Logger.Error().Err(err).Str("component", "claimer").Str("job_id", candidate.ID).
				Msg("claim failed")
			continue
		}
		if job == nil {
			result.Skipped++
			zlog.Logger.Debug().Str("component", "claimer").Str("job_id", candidate.ID).
				Msg("job no longer queued, skipping")
			continue
		}
		result.Claimed = append(result.Claimed, job)
	}

	return result, nil
}
