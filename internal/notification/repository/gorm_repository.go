package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// jobRow is the PostgreSQL shape of a scheduled notification
type jobRow struct {
	ID           string            `gorm:"primaryKey"`
	Title        string            `gorm:"not null"`
	Body         string            `gorm:"not null"`
	ImageURL     string
	Action       string
	Data         datatypes.JSONMap
	Topic        string
	Token        string
	SendAt       time.Time `gorm:"index:idx_due,priority:2;not null"`
	ExpiresAt    *time.Time
	Status       string `gorm:"index:idx_due,priority:1;not null;default:queued"`
	AttemptCount int    `gorm:"not null;default:0"`
	ProcessingAt *time.Time
	SentAt       *time.Time
	FailedAt     *time.Time
	ErrorAt      *time.Time
	LastResult   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (jobRow) TableName() string { return "scheduled_notifications" }

type historyRow struct {
	ID        string `gorm:"primaryKey"`
	JobID     string `gorm:"index"`
	Title     string
	Body      string
	ImageURL  string
	Action    string
	Data      datatypes.JSONMap
	Topic     string
	MessageID string
	SentAt    time.Time `gorm:"index"`
	Source    string
}

func (historyRow) TableName() string { return "notification_history" }

type deadLetterRow struct {
	ID           string `gorm:"primaryKey"`
	JobID        string `gorm:"index"`
	Payload      datatypes.JSON
	Error        string
	Code         string
	AttemptCount int
	FailedAt     time.Time `gorm:"index"`
}

func (deadLetterRow) TableName() string { return "notification_dead_letters" }

// payloadSnapshot keeps the device token, which the API representation hides
type payloadSnapshot struct {
	*domain.Job
	Token string `json:"token,omitempty"`
}

func rowFromJob(j *domain.Job) *jobRow {
	return &jobRow{
		ID:           j.ID,
		Title:        j.Title,
		Body:         j.Body,
		ImageURL:     j.ImageURL,
		Action:       j.Action,
		Data:         datatypes.JSONMap(domain.ExtraToMap(j.Extra)),
		Topic:        j.Topic,
		Token:        j.Token,
		SendAt:       j.SendAt,
		ExpiresAt:    j.ExpiresAt,
		Status:       string(j.Status),
		AttemptCount: j.AttemptCount,
		ProcessingAt: j.ProcessingAt,
		SentAt:       j.SentAt,
		FailedAt:     j.FailedAt,
		ErrorAt:      j.ErrorAt,
		LastResult:   j.LastResult,
		CreatedAt:    j.CreatedAt,
	}
}

func (row *jobRow) toDomain() *domain.Job {
	extra, _ := domain.ExtraFromMap(row.Data)
	return &domain.Job{
		ID:           row.ID,
		Title:        row.Title,
		Body:         row.Body,
		ImageURL:     row.ImageURL,
		Action:       row.Action,
		Extra:        extra,
		Topic:        row.Topic,
		Token:        row.Token,
		SendAt:       row.SendAt,
		ExpiresAt:    row.ExpiresAt,
		Status:       domain.Status(row.Status),
		AttemptCount: row.AttemptCount,
		ProcessingAt: row.ProcessingAt,
		SentAt:       row.SentAt,
		FailedAt:     row.FailedAt,
		ErrorAt:      row.ErrorAt,
		LastResult:   row.LastResult,
		CreatedAt:    row.CreatedAt,
	}
}

// gormRepository implements Repository using GORM
type gormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-based Repository
func NewGormRepository(db *gorm.DB) (Repository, error) {
	if err := db.AutoMigrate(&jobRow{}, &historyRow{}, &deadLetterRow{}); err != nil {
		return nil, fmt.Errorf("migrate notification tables: %w", err)
	}
	return &gormRepository{db: db}, nil
}

func (r *gormRepository) Create(ctx context.Context, job *domain.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = domain.StatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(rowFromJob(job)).Error
}

func (r *gormRepository) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	var row jobRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toDomain(), nil
}

func (r *gormRepository) FindDue(ctx context.Context, now time.Time, limit int) (DuePage, error) {
	var rows []*jobRow
	query := r.db.WithContext(ctx).
		Where("status = ? AND send_at <= ?", string(domain.StatusQueued), now).
		Order("send_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return DuePage{}, err
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toDomain())
	}
	return DuePage{Jobs: jobs}, nil
}

func (r *gormRepository) Claim(ctx context.Context, id string, now time.Time) (*domain.Job, error) {
	var claimed *domain.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row jobRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if row.Status != string(domain.StatusQueued) {
			return nil
		}

		if err := tx.Model(&jobRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":        string(domain.StatusProcessing),
			"processing_at": now,
			"updated_at":    time.Now(),
		}).Error; err != nil {
			return err
		}

		row.Status = string(domain.StatusProcessing)
		row.ProcessingAt = &now
		claimed = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}
	return claimed, nil
}

func (r *gormRepository) MarkSent(ctx context.Context, id, result string, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":      string(domain.StatusSent),
		"sent_at":     at,
		"last_result": result,
	})
}

func (r *gormRepository) MarkQueued(ctx context.Context, id string, attemptCount int, result string, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":        string(domain.StatusQueued),
		"attempt_count": attemptCount,
		"failed_at":     at,
		"last_result":   result,
	})
}

func (r *gormRepository) MarkError(ctx context.Context, id string, attemptCount int, result string, at time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":        string(domain.StatusError),
		"attempt_count": attemptCount,
		"error_at":      at,
		"last_result":   result,
	})
}

func (r *gormRepository) update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&jobRow{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *gormRepository) AppendHistory(ctx context.Context, record *domain.HistoryRecord) error {
	row := &historyRow{
		ID:        uuid.New().String(),
		JobID:     record.JobID,
		Title:     record.Title,
		Body:      record.Body,
		ImageURL:  record.ImageURL,
		Action:    record.Action,
		Data:      datatypes.JSONMap(domain.ExtraToMap(record.Extra)),
		Topic:     record.Topic,
		MessageID: record.MessageID,
		SentAt:    record.SentAt,
		Source:    record.Source,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	record.ID = row.ID
	return nil
}

func (r *gormRepository) ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error) {
	var rows []*historyRow
	query := r.db.WithContext(ctx).Order("sent_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*domain.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		extra, _ := domain.ExtraFromMap(row.Data)
		records = append(records, &domain.HistoryRecord{
			ID:        row.ID,
			JobID:     row.JobID,
			Title:     row.Title,
			Body:      row.Body,
			ImageURL:  row.ImageURL,
			Action:    row.Action,
			Extra:     extra,
			Topic:     row.Topic,
			MessageID: row.MessageID,
			SentAt:    row.SentAt,
			Source:    row.Source,
		})
	}
	return records, nil
}

func (r *gormRepository) AppendDeadLetter(ctx context.Context, record *domain.DeadLetterRecord) error {
	payload, err := json.Marshal(payloadSnapshot{Job: record.Payload, Token: record.Payload.Token})
	if err != nil {
		return fmt.Errorf("encode dead letter payload: %w", err)
	}

	row := &deadLetterRow{
		ID:           uuid.New().String(),
		JobID:        record.JobID,
		Payload:      datatypes.JSON(payload),
		Error:        record.Error,
		Code:         record.Code,
		AttemptCount: record.AttemptCount,
		FailedAt:     record.FailedAt,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	record.ID = row.ID
	return nil
}

func (r *gormRepository) ListDeadLetters(ctx context.Context, limit int) ([]*domain.DeadLetterRecord, error) {
	var rows []*deadLetterRow
	query := r.db.WithContext(ctx).Order("failed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]*domain.DeadLetterRecord, 0, len(rows))
	for _, row := range rows {
		snapshot := payloadSnapshot{Job: &domain.Job{}}
		if err := json.Unmarshal(row.Payload, &snapshot); err != nil {
			return nil, fmt.Errorf("decode dead letter %s: %w", row.ID, err)
		}
		snapshot.Job.Token = snapshot.Token
		records = append(records, &domain.DeadLetterRecord{
			ID:           row.ID,
			JobID:        row.JobID,
			Payload:      snapshot.Job,
			Error:        row.Error,
			Code:         row.Code,
			AttemptCount: row.AttemptCount,
			FailedAt:     row.FailedAt,
		})
	}
	return records, nil
}
