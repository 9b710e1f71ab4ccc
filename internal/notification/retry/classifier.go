// Package retry decides what happens to a job after a failed dispatch.
// Classification looks at the gateway's error code and its message.
package retry

import (
	"notify-dispatcher/pkg/fcm"
)

// Class separates failures worth retrying from those that will never succeed
type Class int

const (
	Fatal Class = iota
	Retryable
)

func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "fatal"
}

var transientCodes = map[fcm.ErrorCode]struct{}{
	fcm.CodeResourceExhausted: {},
	fcm.CodeUnavailable:       {},
	fcm.CodeAborted:           {},
	fcm.CodeDeadlineExceeded:  {},
}

// Classify maps a gateway error code to its failure class
func Classify(code fcm.ErrorCode) Class {
	if _, ok := transientCodes[code]; ok {
		return Retryable
	}
	return Fatal
}

// ClassifyError extracts the code of err at the gateway boundary and classifies it.
// A failure is retryable when either its code or its message is transient.
func ClassifyError(err error) (fcm.ErrorCode, Class) {
	if err == nil {
		return "", Fatal
	}
	code := fcm.CodeOf(err)
	if Classify(code) == Retryable || Classify(fcm.CodeFromText(err.Error())) == Retryable {
		return code, Retryable
	}
	return code, Fatal
}
