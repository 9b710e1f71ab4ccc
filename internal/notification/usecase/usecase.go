package usecase

import (
	"context"
	"time"

	"notify-dispatcher/internal/notification/domain"
)

//go:generate mockgen -source=usecase.go -destination=../../mocks/usecase/usecase_mock.go -package=mocks

// NotificationUsecase defines the operator-facing operations on the queue
type NotificationUsecase interface {
	// Enqueue creates a queued job
	Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Job, error)

	// GetJob returns domain.ErrJobNotFound for unknown ids
	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// ListHistory returns the most recent deliveries first
	ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error)

	// ListDeadLetters returns the most recent quarantined jobs first
	ListDeadLetters(ctx context.Context, limit int) ([]*domain.DeadLetterRecord, error)
}

// EnqueueRequest represents the fields of a new job
type EnqueueRequest struct {
	Title     string
	Body      string
	ImageURL  string
	Action    string
	Topic     string
	Token     string
	SendAt    time.Time // zero means now
	ExpiresAt *time.Time
	Extra     map[string]domain.ExtraValue
}
