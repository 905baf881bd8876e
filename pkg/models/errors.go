package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every store and service. Callers match with errors.Is;
// anything that wraps none of these is an internal failure.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// ErrSliceOrdered is the conflict raised when a cart slice already has an order.
var ErrSliceOrdered = fmt.Errorf("%w: cart slice already ordered", ErrConflict)
