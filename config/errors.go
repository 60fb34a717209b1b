package config

import "errors"

var (
	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrPathRequired is returned by Save when no path is given.
	ErrPathRequired = errors.New("config path required")
)
