package analytics

import "errors"

var (
	// ErrScopeRequired is returned when a vendor or tailor identity has no
	// bound vendor/tailor id, so no safe data scope can be established.
	ErrScopeRequired = errors.New("caller role requires a bound vendor or tailor id")

	// ErrUnknownRole is returned for roles outside the supported set.
	ErrUnknownRole = errors.New("unknown caller role")

	// ErrInvalidGranularity is returned when a refresh names an unsupported
	// granularity.
	ErrInvalidGranularity = errors.New("invalid granularity")

	// ErrInvalidDateRange is returned when a refresh range is malformed.
	ErrInvalidDateRange = errors.New("invalid date range")
)
