package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery          = errors.New("query is required")
	ErrInvalidMagnetURI    = errors.New("invalid magnet uri")
	ErrUnknownAdapter      = errors.New("unknown adapter")
	ErrRemoteTimeout       = errors.New("remote request timed out")
	ErrRemoteStatus        = errors.New("remote returned non-success status")
	ErrRemoteShape         = errors.New("unexpected remote payload")
	ErrNoResults           = errors.New("no results")
	ErrAllSourcesExhausted = errors.New("all sources exhausted")
	ErrNotFound            = errors.New("not found")
)

const maxStatusBody = 512

// RemoteStatusError carries the upstream status code and a truncated body.
type RemoteStatusError struct {
	StatusCode int
	Body       string
}

func NewRemoteStatusError(code int, body string) *RemoteStatusError {
	if len(body) > maxStatusBody {
		body = body[:maxStatusBody]
	}
	return &RemoteStatusError{StatusCode: code, Body: body}
}

func (e *RemoteStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("remote HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *RemoteStatusError) Is(target error) bool {
	return target == ErrRemoteStatus
}

// IsRequestError reports whether err rejects the request itself rather than
// a source.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrInvalidMagnetURI)
}
