package domain

import (
	"errors"
	"fmt"
)

// ValidationError is a structured validation failure with a stable field tag.
// Input adapters map it to a 400-class response.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a given field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Sentinel errors shared across repositories and handlers
var (
	// ErrNotFound is returned when an aggregate does not exist or is not
	// owned by the requesting user
	ErrNotFound = errors.New("not found")

	// ErrMultipleCurrencies is returned when a transaction's currency does
	// not match the currency fixed by the asset's first transaction
	ErrMultipleCurrencies = errors.New("multiple currencies are not allowed for the same asset")

	// ErrNegativeQuantity is returned when a sell would drive the asset's
	// cumulative quantity below zero
	ErrNegativeQuantity = errors.New("sell quantity exceeds current quantity balance")

	// ErrAssetStillOpened is returned when closed-operation settlement is
	// requested for an asset that still has positive quantity.
	// This indicates a programming error; the batch aborts.
	ErrAssetStillOpened = errors.New("asset still has positive quantity balance")

	// ErrConcurrency is returned on an optimistic conflict; the bus retries
	// the whole unit of work once before surfacing it
	ErrConcurrency = errors.New("concurrent modification detected")

	// ErrExternalUnavailable is returned when the price oracle or the shared
	// key-value store cannot be reached
	ErrExternalUnavailable = errors.New("external service unavailable")
)
