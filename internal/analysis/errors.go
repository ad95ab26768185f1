package analysis

import "errors"

var (
	// ErrNoTarget means no stress column was resolved; dependent metrics are unavailable.
	ErrNoTarget = errors.New("no column containing 'stress' found")
	// ErrTargetNotNumeric means the stress column holds text and cannot be averaged.
	ErrTargetNotNumeric = errors.New("stress column is not numeric")
	// ErrInsufficientData marks a degenerate statistic, e.g. the mean of an empty column.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingColumn is returned when a metric is asked for a column the table
	// lacks. Callers are expected to consult Table.HasColumn first.
	ErrMissingColumn = errors.New("column not present")
)
