package forecast

import "errors"

var (
	// ErrSourceUnavailable covers network, HTTP status, auth, and
	// malformed-payload failures when talking to an upstream source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParse is returned when an expected structure is missing from a
	// scraped page or when reconciled values fail validation.
	ErrParse = errors.New("parse error")

	// ErrStorage wraps persistence layer failures.
	ErrStorage = errors.New("storage error")
)
