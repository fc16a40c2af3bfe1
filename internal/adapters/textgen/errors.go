package textgen

import (
	"context"
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrUnavailable covers a missing key, transport failures, rate limits
	// and server errors. Callers fall back to local behaviour.
	ErrUnavailable    = errors.New("textgen: service unavailable")
	ErrRejected       = errors.New("textgen: request rejected")
	ErrMalformedReply = errors.New("textgen: malformed reply")
	ErrEmptyReply     = errors.New("textgen: empty reply")
)

// IsUnavailable reports whether err means the service could not serve the
// call at all, as opposed to refusing or garbling this one request.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
