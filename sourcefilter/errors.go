package sourcefilter

import "errors"

var (
	// ErrInvalidConfig is returned when the filter configuration is out of range.
	ErrInvalidConfig = errors.New("invalid source filter config")
)
