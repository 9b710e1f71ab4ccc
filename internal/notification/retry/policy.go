package retry

import "time"

// Decision is the routing of a failed dispatch
type Decision int

const (
	Requeue Decision = iota
	DeadLetter
)

func (d Decision) String() string {
	if d == Requeue {
		return "requeue"
	}
	return "dead-letter"
}

const (
	DefaultMaxAttempts = 5
	DefaultPause       = 200 * time.Millisecond
)

// Policy bounds attempts per job. Pause is the fixed delay the driver waits
// before the next claim cycle of a run that requeued a job, not a backoff curve.
type Policy struct {
	MaxAttempts int
	Pause       time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Pause: DefaultPause}
}

// Decide routes a failure given the attempts already recorded before it.
// A retryable failure is requeued only while attemptCount+1 < MaxAttempts.
func (p Policy) Decide(class Class, attemptCount int) Decision {
	if class == Retryable && attemptCount+1 < p.maxAttempts() {
		return Requeue
	}
	return DeadLetter
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
