package domain

import "time"

// Status represents the lifecycle state of a scheduled notification
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is possible from s
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusError
}

// Results written to Job.LastResult when no gateway message id exists
const (
	ResultMissingTarget = "missing-target"
	ResultExpired       = "expired"
	ResultDryRun        = "dry-run"
	ResultMalformed     = "malformed-document"
)

// Job is one scheduled push notification stored in the jobs collection
type Job struct {
	ID string `json:"id"`

	Title    string                `json:"title"`
	Body     string                `json:"body"`
	ImageURL string                `json:"image_url,omitempty"`
	Action   string                `json:"action,omitempty"`
	Extra    map[string]ExtraValue `json:"extra,omitempty"`

	// Exactly one of Topic and Token addresses the message
	Topic string `json:"topic,omitempty"`
	Token string `json:"-"`

	SendAt    time.Time  `json:"send_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Status       Status     `json:"status"`
	AttemptCount int        `json:"attempt_count"`
	ProcessingAt *time.Time `json:"processing_at,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"` // last dispatch failure
	ErrorAt      *time.Time `json:"error_at,omitempty"`
	LastResult   string     `json:"last_result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasTarget reports whether the job carries a topic or a device token
func (j *Job) HasTarget() bool {
	return j.Topic != "" || j.Token != ""
}

// ValidateTarget enforces that exactly one delivery target is set
func (j *Job) ValidateTarget() error {
	if !j.HasTarget() {
		return ErrMissingTarget
	}
	if j.Topic != "" && j.Token != "" {
		return ErrAmbiguousTarget
	}
	return nil
}

// Expired reports whether the job's expiry is at or before now
func (j *Job) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && !now.Before(*j.ExpiresAt)
}

// Due reports whether the job is queued and its send time has passed
func (j *Job) Due(now time.Time) bool {
	return j.Status == StatusQueued && !j.SendAt.After(now)
}

// Clone returns a deep copy so callers never share mutable state with a store
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.Extra != nil {
		c.Extra = make(map[string]ExtraValue, len(j.Extra))
		for k, v := range j.Extra {
			c.Extra[k] = v
		}
	}
	c.ExpiresAt = cloneTime(j.ExpiresAt)
	c.ProcessingAt = cloneTime(j.ProcessingAt)
	c.SentAt = cloneTime(j.SentAt)
	c.FailedAt = cloneTime(j.FailedAt)
	c.ErrorAt = cloneTime(j.ErrorAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
