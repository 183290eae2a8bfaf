package engine

import "errors"

var (
	// ErrInputQuality marks a symbol skipped for missing, short or stale candles.
	ErrInputQuality = errors.New("input quality")
	// ErrComputation marks a symbol skipped because an indicator could not be evaluated.
	ErrComputation = errors.New("computation")
)
