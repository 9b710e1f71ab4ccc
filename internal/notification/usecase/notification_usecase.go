package usecase

import (
	"context"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// notificationUsecase implements NotificationUsecase interface
type notificationUsecase struct {
	repo repository.Repository
}

// NewNotificationUsecase creates a new instance of notificationUsecase
func NewNotificationUsecase(repo repository.Repository) NotificationUsecase {
	return &notificationUsecase{repo: repo}
}

func (u *notificationUsecase) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.Job, error) {
	now := time.Now()
	job := &domain.Job{
		Title:     req.Title,
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		Action:    req.Action,
		Topic:     req.Topic,
		Token:     req.Token,
		SendAt:    req.SendAt,
		ExpiresAt: req.ExpiresAt,
		Extra:     req.Extra,
		Status:    domain.StatusQueued,
		CreatedAt: now,
	}
	if job.SendAt.IsZero() {
		job.SendAt = now
	}

	if err := job.ValidateTarget(); err != nil {
		return nil, err
	}
	if job.ExpiresAt != nil && !job.ExpiresAt.After(job.SendAt) {
		return nil, fmt.Errorf("%w: expires_at must be after send_at", domain.ErrJobExpired)
	}

	if err := u.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

func (u *notificationUsecase) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	job, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (u *notificationUsecase) ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error) {
	return u.repo.ListHistory(ctx, normalizeLimit(limit))
}

func (u *notificationUsecase) ListDeadLetters(ctx context.Context, limit int) ([]*domain.DeadLetterRecord, error) {
	return u.repo.ListDeadLetters(ctx, normalizeLimit(limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
