package domain

import (
	"errors"

	apperrors "roomrelay/pkg/errors"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrUnknownTarget     = errors.New("unknown target")
	ErrMalformedEvent    = errors.New("malformed event")
	ErrNotInRoom         = errors.New("connection is not in the room")
	ErrConnectionExists  = errors.New("connection already registered")
	ErrRateLimited       = errors.New("too many events")
)

// CodeOf maps a relay error to the code reported to clients and HTTP callers.
func CodeOf(err error) apperrors.ErrorCode {
	switch {
	case errors.Is(err, ErrMalformedEvent):
		return apperrors.ErrCodeMalformedEvent
	case errors.Is(err, ErrUnknownConnection):
		return apperrors.ErrCodeUnknownConnection
	case errors.Is(err, ErrUnknownTarget):
		return apperrors.ErrCodeUnknownTarget
	case errors.Is(err, ErrNotInRoom):
		return apperrors.ErrCodeNotInRoom
	case errors.Is(err, ErrConnectionExists):
		return apperrors.ErrCodeConflict
	case errors.Is(err, ErrRateLimited):
		return apperrors.ErrCodeRateLimit
	default:
		return apperrors.ErrCodeInternal
	}
}

// IsRejection reports whether err should be answered with an error frame to
// the connection that caused it. Everything else is only logged.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, ErrNotInRoom) ||
		errors.Is(err, ErrRateLimited)
}
