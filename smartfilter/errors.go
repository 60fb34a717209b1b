package smartfilter

import "errors"

var (
	// ErrInvalidConfig is returned when the filter configuration is out of range.
	ErrInvalidConfig = errors.New("invalid smart filter config")
)
