package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrLoginRequired  = errors.New("sign-in required")
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderNotSaved  = errors.New("order could not be saved")
	ErrNotSupported   = errors.New("operation not available on this page")
	ErrReferenceSpace = errors.New("could not generate a unique order reference")
)

// ValidationError reports a missing or malformed input field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "is required"}
}
