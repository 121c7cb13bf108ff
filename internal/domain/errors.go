package domain

import "fmt"

// Error types for consistent error handling across the engine and its adapters.

// ErrDomain indicates a rejected input: negative money, a rate outside [0, 1],
// an unknown activity code or a missing field. It is never coerced to zero.
type ErrDomain struct {
	Field   string
	Message string
}

func (e *ErrDomain) Error() string {
	return fmt.Sprintf("domain error on '%s': %s", e.Field, e.Message)
}

// ErrConfiguration indicates missing or malformed rate tables.
// It is fatal at startup and never produced per request.
type ErrConfiguration struct {
	Source string
	Reason string
}

func (e *ErrConfiguration) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error [%s]: %s", e.Source, e.Reason)
}

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrUnauthorized indicates an invalid or missing bearer token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}
