package order

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrTotalMismatch = errors.New("total does not match items")
	// ErrIdempotencyConflict is returned when a key is reused for an order
	// with different contents.
	ErrIdempotencyConflict = errors.New("idempotency key already used for a different order")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidOrder.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidOrder }
