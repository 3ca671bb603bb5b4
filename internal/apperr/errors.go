// Package apperr holds the error taxonomy shared by services, repositories
// and the HTTP layer. Handlers map these to status codes in one place.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateKey signals a uniqueness violation on email or
	// idempotency key. Callers map it to "already registered", not 500.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound signals an unknown registration id, email or charge.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized signals a webhook secret or admin token mismatch.
	ErrUnauthorized = errors.New("unauthorized")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates every violated field of one request so the
// caller sees the full list in a single round trip.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// GatewayError wraps a failed payment-gateway call. Stage tells which
// remote step failed so a retried submission can resume from there.
type GatewayError struct {
	Stage string // "customer" or "charge"
	Err   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s step: %v", e.Stage, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
