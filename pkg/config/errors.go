package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates an option value is out of range or
	// conflicts with another option.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrMissingRequired indicates a required option was not provided.
	ErrMissingRequired = errors.New("config: missing required field")
)
