package scoring

import "errors"

var (
	// ErrUnavailable reports that the text-generation collaborator could not
	// be reached or refused the call.
	ErrUnavailable = errors.New("scorer unavailable")
	// ErrUnparseable reports a reply without any digit run.
	ErrUnparseable = errors.New("scorer reply has no score")
)
