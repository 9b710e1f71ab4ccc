package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"notify-dispatcher/internal/notification/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo Repository, jobs ...*domain.Job) {
	t.Helper()
	for _, j := range jobs {
		require.NoError(t, repo.Create(context.Background(), j))
	}
}

func TestMemoryRepository_FindDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewMemoryRepository()

	seed(t, repo,
		&domain.Job{ID: "late", Topic: "t", SendAt: now.Add(-time.Minute)},
		&domain.Job{ID: "early", Topic: "t", SendAt: now.Add(-time.Hour)},
		&domain.Job{ID: "future", Topic: "t", SendAt: now.Add(time.Minute)},
		&domain.Job{ID: "done", Topic: "t", SendAt: now.Add(-time.Hour), Status: domain.StatusSent},
	)

	due, err := repo.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due.Jobs, 2)
	assert.Equal(t, "early", due.Jobs[0].ID)
	assert.Equal(t, "late", due.Jobs[1].ID)
	assert.Empty(t, due.Malformed)

	due, err = repo.FindDue(ctx, now, 1)
	require.NoError(t, err)
	assert.Len(t, due.Jobs, 1)
}

func TestMemoryRepository_ClaimOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryRepository()
	seed(t, repo, &domain.Job{ID: "job-1", Token: "tok", SendAt: now})

	claimed, err := repo.Claim(ctx, "job-1", now)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, domain.StatusProcessing, claimed.Status)
	require.NotNil(t, claimed.ProcessingAt)

	again, err := repo.Claim(ctx, "job-1", now)
	require.NoError(t, err)
	assert.Nil(t, again)

	missing, err := repo.Claim(ctx, "nope", now)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRepository_ConcurrentClaim(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryRepository()
	seed(t, repo, &domain.Job{ID: "job-1", Topic: "t", SendAt: now})

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job, err := repo.Claim(ctx, "job-1", now)
			assert.NoError(t, err)
			if job != nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestMemoryRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMemoryRepository()
	seed(t, repo, &domain.Job{ID: "job-1", Topic: "t", SendAt: now})

	require.NoError(t, repo.MarkQueued(ctx, "job-1", 1, "unavailable: down", now))
	job, err := repo.FindByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, job.Status)
	assert.Equal(t, 1, job.AttemptCount)
	assert.NotNil(t, job.FailedAt)

	require.NoError(t, repo.MarkError(ctx, "job-1", 2, "invalid-argument: bad", now))
	job, _ = repo.FindByID(ctx, "job-1")
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, 2, job.AttemptCount)
	assert.NotNil(t, job.ErrorAt)

	assert.ErrorIs(t, repo.MarkSent(ctx, "ghost", "id", now), domain.ErrJobNotFound)
}

func TestMemoryRepository_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	seed(t, repo, &domain.Job{ID: "job-1", Topic: "t", SendAt: time.Now()})

	job, _ := repo.FindByID(ctx, "job-1")
	job.Status = domain.StatusSent

	stored, _ := repo.FindByID(ctx, "job-1")
	assert.Equal(t, domain.StatusQueued, stored.Status)

	missing, err := repo.FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRepository_ListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.AppendHistory(ctx, &domain.HistoryRecord{JobID: id}))
		require.NoError(t, repo.AppendDeadLetter(ctx, &domain.DeadLetterRecord{JobID: id, Payload: &domain.Job{ID: id}}))
	}

	history, err := repo.ListHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].JobID)
	assert.Equal(t, "b", history[1].JobID)
	assert.NotEmpty(t, history[0].ID)

	dead, err := repo.ListDeadLetters(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dead, 3)
	assert.Equal(t, "c", dead[0].JobID)
	assert.Equal(t, "c", dead[0].Payload.ID)
}
