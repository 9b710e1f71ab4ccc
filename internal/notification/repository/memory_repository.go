package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"notify-dispatcher/internal/notification/domain"

	"github.com/google/uuid"
)

// memoryRepository keeps everything in process; it backs local rehearsals
// (STORE_DRIVER=memory) and tests.
type memoryRepository struct {
	mu          sync.Mutex
	jobs        map[string]*domain.Job
	history     []*domain.HistoryRecord
	deadLetters []*domain.DeadLetterRecord
}

// NewMemoryRepository creates an empty in-memory Repository
func NewMemoryRepository() Repository {
	return &memoryRepository{jobs: make(map[string]*domain.Job)}
}

func (r *memoryRepository) Create(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	if job.Status == "" {
		job.Status = domain.StatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	r.jobs[job.ID] = job.Clone()
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.jobs[id].Clone(), nil
}

func (r *memoryRepository) FindDue(_ context.Context, now time.Time, limit int) (DuePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []*domain.Job
	for _, j := range r.jobs {
		if j.Due(now) {
			due = append(due, j.Clone())
		}
	}
	sort.SliceStable(due, func(a, b int) bool {
		if due[a].SendAt.Equal(due[b].SendAt) {
			return due[a].ID < due[b].ID
		}
		return due[a].SendAt.Before(due[b].SendAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return DuePage{Jobs: due}, nil
}

func (r *memoryRepository) Claim(_ context.Context, id string, now time.Time) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok || j.Status != domain.StatusQueued {
		return nil, nil
	}
	j.Status = domain.StatusProcessing
	at := now
	j.ProcessingAt = &at
	return j.Clone(), nil
}

func (r *memoryRepository) MarkSent(_ context.Context, id, result string, at time.Time) error {
	return r.update(id, func(j *domain.Job) {
		j.Status = domain.StatusSent
		j.SentAt = &at
		j.LastResult = result
	})
}

func (r *memoryRepository) MarkQueued(_ context.Context, id string, attemptCount int, result string, at time.Time) error {
	return r.update(id, func(j *domain.Job) {
		j.Status = domain.StatusQueued
		j.AttemptCount = attemptCount
		j.FailedAt = &at
		j.LastResult = result
	})
}

func (r *memoryRepository) MarkError(_ context.Context, id string, attemptCount int, result string, at time.Time) error {
	return r.update(id, func(j *domain.Job) {
		j.Status = domain.StatusError
		j.AttemptCount = attemptCount
		j.ErrorAt = &at
		j.LastResult = result
	})
}

func (r *memoryRepository) update(id string, apply func(*domain.Job)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	apply(j)
	return nil
}

func (r *memoryRepository) AppendHistory(_ context.Context, record *domain.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *record
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	record.ID = c.ID
	r.history = append(r.history, &c)
	return nil
}

func (r *memoryRepository) ListHistory(_ context.Context, limit int) ([]*domain.HistoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.HistoryRecord, 0, len(r.history))
	for i := len(r.history) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		c := *r.history[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *memoryRepository) AppendDeadLetter(_ context.Context, record *domain.DeadLetterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *record
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Payload = record.Payload.Clone()
	record.ID = c.ID
	r.deadLetters = append(r.deadLetters, &c)
	return nil
}

func (r *memoryRepository) ListDeadLetters(_ context.Context, limit int) ([]*domain.DeadLetterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.DeadLetterRecord, 0, len(r.deadLetters))
	for i := len(r.deadLetters) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		c := *r.deadLetters[i]
		c.Payload = r.deadLetters[i].Payload.Clone()
		out = append(out, &c)
	}
	return out, nil
}
