package engineconfig

import "errors"

// Sentinel errors for engine configuration.
var (
	// ErrEmpty is returned when a config with no keys is built.
	ErrEmpty = errors.New("engineconfig: config cannot be empty")

	// ErrUnknownKey is returned for a key that is neither a known option nor
	// a per-language override.
	ErrUnknownKey = errors.New("engineconfig: unknown key")

	// ErrInvalidValue is returned when a value has the wrong type or fails
	// validation.
	ErrInvalidValue = errors.New("engineconfig: invalid value")
)
