package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	mocks "notify-dispatcher/internal/mocks/usecase"
	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/repository"
	"notify-dispatcher/internal/notification/retry"
	"notify-dispatcher/internal/notification/usecase"
	"notify-dispatcher/pkg/fcm"

	"firebase.google.com/go/v4/messaging"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	wbfretry "github.com/wb-go/wbf/retry"
)

func newTestDriver(repo repository.Repository, sender usecase.Sender, pageSize, maxBatches int) *Driver {
	return newPolicyDriver(repo, sender, pageSize, maxBatches, retry.Policy{MaxAttempts: retry.DefaultMaxAttempts})
}

func newPolicyDriver(repo repository.Repository, sender usecase.Sender, pageSize, maxBatches int, policy retry.Policy) *Driver {
	return NewDriver(
		usecase.NewClaimer(repo, pageSize),
		usecase.NewDispatcher(sender, "default"),
		usecase.NewRecorder(repo, policy, wbfretry.Strategy{Attempts: 1}),
		DriverConfig{MaxBatches: maxBatches},
	)
}

// ctxBoundRepo rejects state writes made with a done context, like a network store
type ctxBoundRepo struct {
	repository.Repository
}

func (r *ctxBoundRepo) MarkQueued(ctx context.Context, id string, attemptCount int, result string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Repository.MarkQueued(ctx, id, attemptCount, result, at)
}

func (r *ctxBoundRepo) MarkError(ctx context.Context, id string, attemptCount int, result string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Repository.MarkError(ctx, id, attemptCount, result, at)
}

// undecodableRepo reports the listed jobs as documents that failed to decode
type undecodableRepo struct {
	repository.Repository
	bad map[string]bool
}

func (r *undecodableRepo) FindDue(ctx context.Context, now time.Time, limit int) (repository.DuePage, error) {
	page, err := r.Repository.FindDue(ctx, now, limit)
	if err != nil {
		return page, err
	}
	jobs := page.Jobs[:0]
	for _, job := range page.Jobs {
		if r.bad[job.ID] {
			page.Malformed = append(page.Malformed, job.ID)
			continue
		}
		jobs = append(jobs, job)
	}
	page.Jobs = jobs
	return page, nil
}

func enqueue(t *testing.T, repo repository.Repository, jobs ...*domain.Job) {
	t.Helper()
	for _, j := range jobs {
		if j.SendAt.IsZero() {
			j.SendAt = time.Now().Add(-time.Minute)
		}
		require.NoError(t, repo.Create(context.Background(), j))
	}
}

func load(t *testing.T, repo repository.Repository, id string) *domain.Job {
	t.Helper()
	job, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func TestDriver_TransientFailureExhaustsAfterFiveRuns(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "job-1", Title: "t", Body: "b", Topic: "news"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return("", &fcm.SendError{Code: fcm.CodeUnavailable, Message: "service unavailable"}).
		Times(retry.DefaultMaxAttempts)

	d := newTestDriver(repo, sender, 50, 10)

	stats, err := d.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requeued)
	job := load(t, repo, "job-1")
	assert.Equal(t, domain.StatusQueued, job.Status)
	assert.Equal(t, 1, job.AttemptCount)

	for run := 2; run <= retry.DefaultMaxAttempts; run++ {
		_, err := d.Run(ctx, RunOptions{})
		require.NoError(t, err)
	}

	job = load(t, repo, "job-1")
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, retry.DefaultMaxAttempts, job.AttemptCount)

	dead, _ := repo.ListDeadLetters(ctx, 10)
	require.Len(t, dead, 1)
	assert.Equal(t, "job-1", dead[0].JobID)

	// terminal jobs are never picked up again
	stats, err = d.Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Processed)
}

func TestDriver_FatalFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "job-1", Token: "stale-token"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return("", &fcm.SendError{Code: fcm.CodeInvalidArgument, Message: "bad token"})

	stats, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeadLettered)

	job := load(t, repo, "job-1")
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, 1, job.AttemptCount)

	dead, _ := repo.ListDeadLetters(ctx, 10)
	assert.Len(t, dead, 1)
}

func TestDriver_SuccessWritesHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	enqueue(t, repo,
		&domain.Job{ID: "job-1", Title: "One", Topic: "news"},
		&domain.Job{ID: "job-2", Title: "Two", Token: "tok"},
	)

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *messaging.Message) (string, error) {
			return "projects/demo/messages/" + msg.Data["title"], nil
		},
	).Times(2)

	stats, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sent)
	assert.Equal(t, 2, stats.Claimed)
	assert.Equal(t, 1, stats.Batches)

	assert.Equal(t, domain.StatusSent, load(t, repo, "job-1").Status)
	assert.Equal(t, "projects/demo/messages/Two", load(t, repo, "job-2").LastResult)

	history, _ := repo.ListHistory(ctx, 10)
	assert.Len(t, history, 2)
}

func TestDriver_DryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "job-1", Topic: "news"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	stats, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, stats.DryRun)
	assert.Equal(t, 1, stats.Sent)

	job := load(t, repo, "job-1")
	assert.Equal(t, domain.StatusSent, job.Status)
	assert.Equal(t, domain.ResultDryRun, job.LastResult)

	history, _ := repo.ListHistory(ctx, 10)
	require.Len(t, history, 1)
	assert.Equal(t, domain.ResultDryRun, history[0].MessageID)
}

func TestDriver_MissingTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "job-1", Title: "nowhere"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	stats, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Invalid)

	job := load(t, repo, "job-1")
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, domain.ResultMissingTarget, job.LastResult)

	dead, _ := repo.ListDeadLetters(ctx, 10)
	assert.Empty(t, dead)
}

func TestDriver_ExpiredJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMemoryRepository()
	expired := time.Now().Add(-time.Second)
	enqueue(t, repo, &domain.Job{ID: "job-1", Topic: "news", SendAt: expired.Add(-time.Hour), ExpiresAt: &expired})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	stats, err := newTestDriver(repo, sender, 50, 10).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, domain.ResultExpired, load(t, repo, "job-1").LastResult)
}

func TestDriver_MaxBatchesCeiling(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		enqueue(t, repo, &domain.Job{ID: fmt.Sprintf("job-%d", i), Topic: "news", SendAt: base.Add(time.Duration(i) * time.Second)})
	}

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return("ok", nil).Times(4)

	stats, err := newTestDriver(repo, sender, 2, 2).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Batches)
	assert.Equal(t, 4, stats.Sent)

	assert.Equal(t, domain.StatusQueued, load(t, repo, "job-4").Status)
}

func TestDriver_RequeuedJobNotRetriedInSameRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	base := time.Now().Add(-time.Hour)
	enqueue(t, repo,
		&domain.Job{ID: "flaky", Topic: "flaky", SendAt: base},
		&domain.Job{ID: "steady", Topic: "steady", SendAt: base.Add(time.Second)},
	)

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg *messaging.Message) (string, error) {
			if msg.Topic == "flaky" {
				return "", &fcm.SendError{Code: fcm.CodeAborted, Message: "aborted"}
			}
			return "ok", nil
		},
	).Times(2)

	stats, err := newTestDriver(repo, sender, 1, 10).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requeued)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 3, stats.Batches)

	flaky := load(t, repo, "flaky")
	assert.Equal(t, domain.StatusQueued, flaky.Status)
	assert.Equal(t, 1, flaky.AttemptCount)
}

func TestDriver_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "job-1", Topic: "news"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.StatusQueued, load(t, repo, "job-1").Status)
}

func TestDriver_PauseAfterRequeue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMemoryRepository()
	base := time.Now().Add(-time.Hour)
	enqueue(t, repo,
		&domain.Job{ID: "a", Topic: "news", SendAt: base},
		&domain.Job{ID: "b", Topic: "news", SendAt: base.Add(time.Second)},
	)

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return("", &fcm.SendError{Code: fcm.CodeUnavailable, Message: "down"}).Times(2)

	d := newPolicyDriver(repo, sender, 1, 10, retry.Policy{MaxAttempts: 5, Pause: 20 * time.Millisecond})

	started := time.Now()
	stats, err := d.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Requeued)
	assert.GreaterOrEqual(t, time.Since(started), 40*time.Millisecond)
}

func TestDriver_NoPauseWithoutPolicyPause(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "a", Topic: "news"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return("", &fcm.SendError{Code: fcm.CodeUnavailable, Message: "down"})

	d := newPolicyDriver(repo, sender, 1, 10, retry.Policy{MaxAttempts: 5})
	assert.Equal(t, time.Duration(0), d.recorder.RetryPause())

	stats, err := d.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requeued)
}

func TestDriver_CancelDuringSendRequeues(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &ctxBoundRepo{Repository: repository.NewMemoryRepository()}
	enqueue(t, repo, &domain.Job{ID: "job-1", Topic: "news"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(sendCtx context.Context, _ *messaging.Message) (string, error) {
			cancel()
			return "", fcm.NewSendError(sendCtx.Err())
		},
	)

	stats, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requeued)
	assert.Equal(t, 0, stats.DeadLettered)
	assert.Equal(t, 0, stats.StoreErrors)

	job := load(t, repo, "job-1")
	assert.Equal(t, domain.StatusQueued, job.Status)
	assert.Equal(t, 1, job.AttemptCount)

	dead, _ := repo.ListDeadLetters(context.Background(), 10)
	assert.Empty(t, dead)
}

func TestDriver_MalformedJobDoesNotBlockQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := &undecodableRepo{Repository: repository.NewMemoryRepository(), bad: map[string]bool{"broken": true}}
	base := time.Now().Add(-time.Hour)
	enqueue(t, repo,
		&domain.Job{ID: "broken", Topic: "news", SendAt: base},
		&domain.Job{ID: "good", Topic: "news", SendAt: base.Add(time.Second)},
	)

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Return("ok", nil)

	stats, err := newTestDriver(repo, sender, 50, 10).Run(ctx, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, 1, stats.Sent)

	assert.Equal(t, domain.StatusSent, load(t, repo, "good").Status)
	broken := load(t, repo, "broken")
	assert.Equal(t, domain.StatusError, broken.Status)
	assert.Equal(t, domain.ResultMalformed, broken.LastResult)

	dead, _ := repo.ListDeadLetters(ctx, 10)
	assert.Empty(t, dead)
}

func TestDriver_DryRunFromConfig(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := repository.NewMemoryRepository()
	enqueue(t, repo, &domain.Job{ID: "job-1", Topic: "news"})

	sender := mocks.NewMockSender(ctrl)
	sender.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	d := NewDriver(
		usecase.NewClaimer(repo, 50),
		usecase.NewDispatcher(sender, "default"),
		usecase.NewRecorder(repo, retry.DefaultPolicy(), wbfretry.Strategy{Attempts: 1}),
		DriverConfig{MaxBatches: 10, DryRun: true},
	)

	stats, err := d.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, stats.DryRun)
	assert.Equal(t, domain.ResultDryRun, load(t, repo, "job-1").LastResult)
}
