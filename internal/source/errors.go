package source

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream is the kind of every UpstreamError.
	ErrUpstream = errors.New("upstream request failed")

	// ErrInvalidDocument is returned when a document cannot be decoded.
	ErrInvalidDocument = errors.New("invalid datastandard document")

	// ErrDocumentTooLarge is returned when a document exceeds the size limit.
	ErrDocumentTooLarge = errors.New("datastandard document too large")

	// ErrEmptyLocation is returned when no location is given.
	ErrEmptyLocation = errors.New("empty datastandard location")
)

// UpstreamError is returned when the upstream service answers with a
// non-success status. HTTP front ends pass StatusCode and StatusText on to
// their own clients.
type UpstreamError struct {
	// StatusCode is the HTTP status code of the upstream response.
	StatusCode int

	// StatusText is the reason phrase, e.g. "Not Found".
	StatusText string

	// URL is the requested location with credentials removed.
	URL string
}

func (e *UpstreamError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s returned %d %s", ErrUpstream, e.URL, e.StatusCode, e.StatusText)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }
