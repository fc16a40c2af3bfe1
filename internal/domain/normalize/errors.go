package normalize

import "errors"

// Reasons a live normalization fell back to the raw record.
var (
	ErrNoJSON         = errors.New("reply contains no JSON object")
	ErrInvalidJSON    = errors.New("reply JSON object is malformed")
	ErrNoKnownFields  = errors.New("reply JSON object has no known fields")
	ErrGeneratorError = errors.New("text generation failed")
)
