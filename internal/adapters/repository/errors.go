package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrInvalidRecord    = errors.New("record has no source_url or title")
	ErrInvalidProfile   = errors.New("profile has no user id")
	ErrStoreUnavailable = errors.New("store unavailable")
)
