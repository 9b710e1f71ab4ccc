package domain

import "time"

// SourceScheduler tags history records written by the batch driver
const SourceScheduler = "scheduled-dispatch"

// HistoryRecord is an append-only copy of a delivered notification
type HistoryRecord struct {
	ID        string                `json:"id"`
	JobID     string                `json:"job_id"`
	Title     string                `json:"title"`
	Body      string                `json:"body"`
	ImageURL  string                `json:"image_url,omitempty"`
	Action    string                `json:"action,omitempty"`
	Extra     map[string]ExtraValue `json:"extra,omitempty"`
	Topic     string                `json:"topic,omitempty"`
	MessageID string                `json:"message_id"`
	SentAt    time.Time             `json:"sent_at"`
	Source    string                `json:"source"`
}

// NewHistoryRecord denormalizes the content fields of a delivered job
func NewHistoryRecord(job *Job, messageID string, sentAt time.Time) *HistoryRecord {
	c := job.Clone()
	return &HistoryRecord{
		JobID:     c.ID,
		Title:     c.Title,
		Body:      c.Body,
		ImageURL:  c.ImageURL,
		Action:    c.Action,
		Extra:     c.Extra,
		Topic:     c.Topic,
		MessageID: messageID,
		SentAt:    sentAt,
		Source:    SourceScheduler,
	}
}

// DeadLetterRecord quarantines a job that could not be delivered.
// Payload is the job as it was claimed, before the final failure was recorded.
type DeadLetterRecord struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	Payload      *Job      `json:"payload"`
	Error        string    `json:"error"`
	Code         string    `json:"code"`
	AttemptCount int       `json:"attempt_count"`
	FailedAt     time.Time `json:"failed_at"`
}
