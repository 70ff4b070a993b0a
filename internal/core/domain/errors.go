package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates the intent lifecycle forbids the operation.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidDIML indicates a DIML document failed structural validation.
	ErrInvalidDIML = errors.New("invalid DIML")

	// ErrMalformedOutput indicates the text-generation collaborator returned
	// something that does not match the expected schema.
	ErrMalformedOutput = errors.New("malformed collaborator output")

	// ErrNoDescription indicates a flow has no natural-language description.
	ErrNoDescription = errors.New("no description available")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Operations that need the collaborator fail with this error.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)
