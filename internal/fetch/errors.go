package fetch

import "errors"

// Failure kinds surfaced to the dataset store. Callers classify with
// errors.Is; the store converts them to user-facing messages.
var (
	// ErrInvalidResource means the partition resource reference could
	// not be built. Should be unreachable given the URL template.
	ErrInvalidResource = errors.New("invalid camera database resource")
	// ErrDownloadFailed covers non-2xx/304/404 statuses, transport
	// failures, and a failed full-database fallback.
	ErrDownloadFailed = errors.New("camera database download failed")
	// ErrDecodeFailed means the response body did not match the bundle
	// schema.
	ErrDecodeFailed = errors.New("camera database decode failed")
)
