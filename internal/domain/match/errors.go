package match

import "errors"

var (
	// ErrReplaceFailed reports that a recomputed set could not be persisted;
	// the previous set is still live.
	ErrReplaceFailed = errors.New("suggestion set replace failed")
	// ErrCandidates reports that the record pool could not be read.
	ErrCandidates = errors.New("candidate scholarships unavailable")
)
