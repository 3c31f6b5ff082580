package analysis

import "errors"

var (
	// ErrNoRecords is returned when an operation needs at least one record.
	ErrNoRecords = errors.New("analysis: no records")
	// ErrEmptyBaseline is returned when no record satisfies the clean criteria.
	ErrEmptyBaseline = errors.New("analysis: no clean records for baseline")
	// ErrNonPositiveHead guards the efficiency division.
	ErrNonPositiveHead = errors.New("analysis: non-positive head after filter")
	// ErrNegativePrice is returned for a negative energy price or cleaning cost.
	ErrNegativePrice = errors.New("analysis: negative price")
	// ErrTooFewSamples is returned when a correlation has fewer than three pairs.
	ErrTooFewSamples = errors.New("analysis: too few samples for correlation")
	// ErrBaselineVersion is returned for baseline artifacts of an unknown version.
	ErrBaselineVersion = errors.New("analysis: unsupported baseline version")
)
