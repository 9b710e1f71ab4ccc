package fcm

import (
	"context"
	"errors"
	"regexp"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
)

// ErrorCode is the machine-readable signal extracted from a gateway failure
type ErrorCode string

const (
	CodeResourceExhausted ErrorCode = "resource-exhausted"
	CodeUnavailable       ErrorCode = "unavailable"
	CodeAborted           ErrorCode = "aborted"
	CodeDeadlineExceeded  ErrorCode = "deadline-exceeded"
	CodeInternal          ErrorCode = "internal"
	CodeInvalidArgument   ErrorCode = "invalid-argument"
	CodeUnregistered      ErrorCode = "registration-token-not-registered"
	CodeSenderIDMismatch  ErrorCode = "mismatched-credential"
	CodeThirdPartyAuth    ErrorCode = "third-party-auth-error"
	CodePermissionDenied  ErrorCode = "permission-denied"
	CodeNotFound          ErrorCode = "not-found"
	CodeUnknown           ErrorCode = "unknown"
)

// SendError is the typed failure returned by Client.Send
type SendError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewSendError wraps err with the code extracted by CodeOf
func NewSendError(err error) *SendError {
	return &SendError{Code: CodeOf(err), Message: err.Error(), Err: err}
}

func (e *SendError) Error() string {
	return string(e.Code) + ": " + e.Message
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// CodeOf maps an error to an ErrorCode. Structured Firebase error codes win;
// otherwise the message is matched against known transient-failure texts.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Code
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CodeAborted
	case messaging.IsQuotaExceeded(err), errorutils.IsResourceExhausted(err):
		return CodeResourceExhausted
	case messaging.IsUnregistered(err):
		return CodeUnregistered
	case messaging.IsSenderIDMismatch(err):
		return CodeSenderIDMismatch
	case messaging.IsThirdPartyAuthError(err):
		return CodeThirdPartyAuth
	case errorutils.IsUnavailable(err):
		return CodeUnavailable
	case errorutils.IsAborted(err):
		return CodeAborted
	case errorutils.IsDeadlineExceeded(err):
		return CodeDeadlineExceeded
	case errorutils.IsInvalidArgument(err):
		return CodeInvalidArgument
	case errorutils.IsPermissionDenied(err):
		return CodePermissionDenied
	case errorutils.IsNotFound(err):
		return CodeNotFound
	case errorutils.IsInternal(err):
		return CodeInternal
	}

	return CodeFromText(err.Error())
}

var textPatterns = []struct {
	re   *regexp.Regexp
	code ErrorCode
}{
	{regexp.MustCompile(`(?i)quota|rate.?limit|resource.?exhausted|too many requests|\b429\b`), CodeResourceExhausted},
	{regexp.MustCompile(`(?i)deadline|timed? ?out|timeout`), CodeDeadlineExceeded},
	{regexp.MustCompile(`(?i)unavailable|\b503\b|connection (reset|refused)|temporar(y|ily)|try again`), CodeUnavailable},
	{regexp.MustCompile(`(?i)\baborted\b`), CodeAborted},
}

// CodeFromText matches msg against known transient-failure texts and
// returns CodeUnknown when nothing matches.
func CodeFromText(msg string) ErrorCode {
	for _, p := range textPatterns {
		if p.re.MatchString(msg) {
			return p.code
		}
	}
	return CodeUnknown
}
