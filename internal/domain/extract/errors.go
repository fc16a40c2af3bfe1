package extract

import "errors"

// Sentinel rejections. Extract may wrap them with detail, so callers
// compare with errors.Is.
var (
	ErrNotScholarship = errors.New("page is not a scholarship listing")
	ErrMissingTitle   = errors.New("page has no title")
	ErrStale          = errors.New("listing is stale")
)
