package domain

import "errors"

var (
	ErrMissingTarget   = errors.New("job has neither topic nor token")
	ErrAmbiguousTarget = errors.New("job has both topic and token")
	ErrJobExpired      = errors.New("job expired before dispatch")
	ErrJobNotFound     = errors.New("job not found")
	ErrInvalidExtra    = errors.New("unsupported extra value")
)
