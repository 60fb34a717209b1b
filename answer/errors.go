package answer

import "errors"

var (
	// ErrInvalidPrecedence is returned for an unknown precedence value.
	ErrInvalidPrecedence = errors.New("invalid validator precedence")
)
