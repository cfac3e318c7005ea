package domain

import "errors"

// Request-boundary error classes. Callers wrap them with fmt.Errorf("...: %w")
// and the HTTP layer maps them to status codes with errors.Is.
var (
	// ErrInvalidInput indicates missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")

	// ErrServiceUnavailable indicates an upstream embedding, generation,
	// vector database or statistics service failed or timed out.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidModel indicates the optimizer was given an empty or infeasible model.
	ErrInvalidModel = errors.New("invalid model")
)
