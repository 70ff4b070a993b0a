package mcp

import "errors"

var (
	// ErrMissingIntentService is returned when the intent service is not provided.
	ErrMissingIntentService = errors.New("intent service is required")
)
