package repository

import (
	"context"
	"time"

	"notify-dispatcher/internal/notification/domain"
)

// DuePage is the result of a due query. Malformed holds the ids of due
// documents that could not be decoded into a job.
type DuePage struct {
	Jobs      []*domain.Job
	Malformed []string
}

// JobRepository defines access to the scheduled notification queue
type JobRepository interface {
	// Create stores a new job and assigns its ID
	Create(ctx context.Context, job *domain.Job) error

	// FindByID returns nil, nil when the job does not exist
	FindByID(ctx context.Context, id string) (*domain.Job, error)

	// FindDue returns queued jobs with SendAt <= now, oldest first, at most limit.
	// An undecodable document does not fail the query; its id is reported instead.
	FindDue(ctx context.Context, now time.Time, limit int) (DuePage, error)

	// Claim atomically re-reads the job and moves it from queued to processing.
	// It returns nil, nil when the job is no longer queued (another worker won).
	Claim(ctx context.Context, id string, now time.Time) (*domain.Job, error)

	// MarkSent moves a processing job to sent
	MarkSent(ctx context.Context, id, result string, at time.Time) error

	// MarkQueued returns a job to the queue after a retryable failure
	MarkQueued(ctx context.Context, id string, attemptCount int, result string, at time.Time) error

	// MarkError moves a job to the terminal error state
	MarkError(ctx context.Context, id string, attemptCount int, result string, at time.Time) error
}

// HistoryRepository appends delivery history
type HistoryRepository interface {
	AppendHistory(ctx context.Context, record *domain.HistoryRecord) error
	ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error)
}

// DeadLetterRepository appends quarantined jobs
type DeadLetterRepository interface {
	AppendDeadLetter(ctx context.Context, record *domain.DeadLetterRecord) error
	ListDeadLetters(ctx context.Context, limit int) ([]*domain.DeadLetterRecord, error)
}

// Repository is the full store adapter used by the dispatcher
type Repository interface {
	JobRepository
	HistoryRepository
	DeadLetterRepository
}
