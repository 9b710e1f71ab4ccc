package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"

	"cloud.google.com/go/firestore"
	"github.com/wb-go/wbf/zlog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collections names the three Firestore collections the dispatcher uses
type Collections struct {
	Jobs        string
	History     string
	DeadLetters string
}

// firestoreRepository implements Repository on Cloud Firestore
type firestoreRepository struct {
	client      *firestore.Client
	collections Collections
}

// NewFirestoreRepository creates a Firestore-backed Repository
func NewFirestoreRepository(client *firestore.Client, collections Collections) Repository {
	return &firestoreRepository{client: client, collections: collections}
}

type jobDocument struct {
	Title        string                 `firestore:"title"`
	Body         string                 `firestore:"body"`
	ImageURL     string                 `firestore:"imageUrl,omitempty"`
	Action       string                 `firestore:"action,omitempty"`
	Data         map[string]interface{} `firestore:"data,omitempty"`
	Topic        string                 `firestore:"topic,omitempty"`
	Token        string                 `firestore:"token,omitempty"`
	SendAt       time.Time              `firestore:"sendAt"`
	ExpiresAt    *time.Time             `firestore:"expiresAt,omitempty"`
	Status       string                 `firestore:"status"`
	AttemptCount int                    `firestore:"attemptCount"`
	ProcessingAt *time.Time             `firestore:"processingAt,omitempty"`
	SentAt       *time.Time             `firestore:"sentAt,omitempty"`
	FailedAt     *time.Time             `firestore:"failedAt,omitempty"`
	ErrorAt      *time.Time             `firestore:"errorAt,omitempty"`
	LastResult   string                 `firestore:"lastResult,omitempty"`
	CreatedAt    time.Time              `firestore:"createdAt"`
}

func newJobDocument(j *domain.Job) jobDocument {
	return jobDocument{
		Title:        j.Title,
		Body:         j.Body,
		ImageURL:     j.ImageURL,
		Action:       j.Action,
		Data:         domain.ExtraToMap(j.Extra),
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

func (d jobDocument) toDomain(id string) *domain.Job {
	extra, dropped := domain.ExtraFromMap(d.Data)
	if len(dropped) > 0 {
		zlog.Logger.Warn().Str("component", "repository").Str("job_id", id).
			Strs("keys", dropped).Msg("dropping non-scalar data values")
	}
	return &domain.Job{
		ID:           id,
		Title:        d.Title,
		Body:         d.Body,
		ImageURL:     d.ImageURL,
		Action:       d.Action,
		Extra:        extra,
		Topic:        d.Topic,
		Token:        d.Token,
		SendAt:       d.SendAt,
		ExpiresAt:    d.ExpiresAt,
		Status:       domain.Status(d.Status),
		AttemptCount: d.AttemptCount,
		ProcessingAt: d.ProcessingAt,
		SentAt:       d.SentAt,
		FailedAt:     d.FailedAt,
		ErrorAt:      d.ErrorAt,
		LastResult:   d.LastResult,
		CreatedAt:    d.CreatedAt,
	}
}

func decodeJob(snap *firestore.DocumentSnapshot) (*domain.Job, error) {
	var doc jobDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *firestoreRepository) jobs() *firestore.CollectionRef {
	return r.client.Collection(r.collections.Jobs)
}

func (r *firestoreRepository) Create(ctx context.Context, job *domain.Job) error {
	if job.Status == "" {
		job.Status = domain.StatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	ref := r.jobs().NewDoc()
	if job.ID != "" {
		ref = r.jobs().Doc(job.ID)
	}
	if _, err := ref.Create(ctx, newJobDocument(job)); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	job.ID = ref.ID
	return nil
}

func (r *firestoreRepository) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	snap, err := r.jobs().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return decodeJob(snap)
}

func (r *firestoreRepository) FindDue(ctx context.Context, now time.Time, limit int) (DuePage, error) {
	q := r.jobs().
		Where("status", "==", string(domain.StatusQueued)).
		Where("sendAt", "<=", now).
		OrderBy("sendAt", firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var page DuePage
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return DuePage{}, fmt.Errorf("query due jobs: %w", err)
		}
		job, err := decodeJob(snap)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("component", "repository").Str("job_id", snap.Ref.ID).
				Msg("skipping undecodable job document")
			page.Malformed = append(page.Malformed, snap.Ref.ID)
			continue
		}
		page.Jobs = append(page.Jobs, job)
	}
	return page, nil
}

func (r *firestoreRepository) Claim(ctx context.Context, id string, now time.Time) (*domain.Job, error) {
	ref := r.jobs().Doc(id)

	var claimed *domain.Job
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// The function may run more than once on contention
		claimed = nil

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return err
		}
		job, err := decodeJob(snap)
		if err != nil {
			return err
		}
		if job.Status != domain.StatusQueued {
			return nil
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(domain.StatusProcessing)},
			{Path: "processingAt", Value: now},
		}); err != nil {
			return err
		}

		job.Status = domain.StatusProcessing
		job.ProcessingAt = &now
		claimed = job
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", id, err)
	}
	return claimed, nil
}

func (r *firestoreRepository) MarkSent(ctx context.Context, id, result string, at time.Time) error {
	return r.update(ctx, id, []firestore.Update{
		{Path: "status", Value: string(domain.StatusSent)},
		{Path: "sentAt", Value: at},
		{Path: "lastResult", Value: result},
	})
}

func (r *firestoreRepository) MarkQueued(ctx context.Context, id string, attemptCount int, result string, at time.Time) error {
	return r.update(ctx, id, []firestore.Update{
		{Path: "status", Value: string(domain.StatusQueued)},
		{Path: "attemptCount", Value: attemptCount},
		{Path: "failedAt", Value: at},
		{Path: "lastResult", Value: result},
	})
}

func (r *firestoreRepository) MarkError(ctx context.Context, id string, attemptCount int, result string, at time.Time) error {
	return r.update(ctx, id, []firestore.Update{
		{Path: "status", Value: string(domain.StatusError)},
		{Path: "attemptCount", Value: attemptCount},
		{Path: "errorAt", Value: at},
		{Path: "lastResult", Value: result},
	})
}

func (r *firestoreRepository) update(ctx context.Context, id string, updates []firestore.Update) error {
	if _, err := r.jobs().Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrJobNotFound
		}
		return fmt.Errorf("update job %s: %w", id, err)
	}
	return nil
}

type historyDocument struct {
	JobID     string                 `firestore:"jobId"`
	Title     string                 `firestore:"title"`
	Body      string                 `firestore:"body"`
	ImageURL  string                 `firestore:"imageUrl,omitempty"`
	Action    string                 `firestore:"action,omitempty"`
	Data      map[string]interface{} `firestore:"data,omitempty"`
	Topic     string                 `firestore:"topic,omitempty"`
	MessageID string                 `firestore:"messageId"`
	SentAt    time.Time              `firestore:"sentAt"`
	Source    string                 `firestore:"source"`
}

func (r *firestoreRepository) AppendHistory(ctx context.Context, record *domain.HistoryRecord) error {
	ref, _, err := r.client.Collection(r.collections.History).Add(ctx, historyDocument{
		JobID:     record.JobID,
		Title:     record.Title,
		Body:      record.Body,
		ImageURL:  record.ImageURL,
		Action:    record.Action,
		Data:      domain.ExtraToMap(record.Extra),
		Topic:     record.Topic,
		MessageID: record.MessageID,
		SentAt:    record.SentAt,
		Source:    record.Source,
	})
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	record.ID = ref.ID
	return nil
}

func (r *firestoreRepository) ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error) {
	snaps, err := r.latest(ctx, r.collections.History, "sentAt", limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	records := make([]*domain.HistoryRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc historyDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode history %s: %w", snap.Ref.ID, err)
		}
		extra, _ := domain.ExtraFromMap(doc.Data)
		records = append(records, &domain.HistoryRecord{
			ID:        snap.Ref.ID,
			JobID:     doc.JobID,
			Title:     doc.Title,
			Body:      doc.Body,
			ImageURL:  doc.ImageURL,
			Action:    doc.Action,
			Extra:     extra,
			Topic:     doc.Topic,
			MessageID: doc.MessageID,
			SentAt:    doc.SentAt,
			Source:    doc.Source,
		})
	}
	return records, nil
}

type deadLetterDocument struct {
	JobID        string      `firestore:"jobId"`
	Payload      jobDocument `firestore:"payload"`
	Error        string      `firestore:"error"`
	Code         string      `firestore:"code"`
	AttemptCount int         `firestore:"attemptCount"`
	FailedAt     time.Time   `firestore:"failedAt"`
}

func (r *firestoreRepository) AppendDeadLetter(ctx context.Context, record *domain.DeadLetterRecord) error {
	ref, _, err := r.client.Collection(r.collections.DeadLetters).Add(ctx, deadLetterDocument{
		JobID:        record.JobID,
		Payload:      newJobDocument(record.Payload),
		Error:        record.Error,
		Code:         record.Code,
		AttemptCount: record.AttemptCount,
		FailedAt:     record.FailedAt,
	})
	if err != nil {
		return fmt.Errorf("append dead letter: %w", err)
	}
	record.ID = ref.ID
	return nil
}

func (r *firestoreRepository) ListDeadLetters(ctx context.Context, limit int) ([]*domain.DeadLetterRecord, error) {
	snaps, err := r.latest(ctx, r.collections.DeadLetters, "failedAt", limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}

	records := make([]*domain.DeadLetterRecord, 0, len(snaps))
	for _, snap := range snaps {
		var doc deadLetterDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode dead letter %s: %w", snap.Ref.ID, err)
		}
		records = append(records, &domain.DeadLetterRecord{
			ID:           snap.Ref.ID,
			JobID:        doc.JobID,
			Payload:      doc.Payload.toDomain(doc.JobID),
			Error:        doc.Error,
			Code:         doc.Code,
			AttemptCount: doc.AttemptCount,
			FailedAt:     doc.FailedAt,
		})
	}
	return records, nil
}

func (r *firestoreRepository) latest(ctx context.Context, collection, orderBy string, limit int) ([]*firestore.DocumentSnapshot, error) {
	q := r.client.Collection(collection).OrderBy(orderBy, firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q.Documents(ctx).GetAll()
}
