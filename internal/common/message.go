package common

import (
	"context"
	"errors"
)

// UserMessage maps an error to a short human-readable reason. Raw transport
// and driver errors are never shown to the user; anything not covered by the
// taxonomy becomes a generic storage failure message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOffline):
		return "You are offline. Changes are saved on this device and will sync when the connection is back."
	case errors.Is(err, ErrUnavailable):
		return "The server cannot be reached right now. Your data is safe on this device."
	case errors.Is(err, ErrLocalDataNotAvailable):
		return "Sign in online once before using this device offline."
	case errors.Is(err, ErrValidation):
		return "Some of the entered values are invalid: " + err.Error()
	case errors.Is(err, ErrNotFound):
		return "The record no longer exists."
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrInvalidToken):
		return "Please sign in again."
	case errors.Is(err, ErrForbidden):
		return "This record belongs to another account."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The operation was cancelled."
	default:
		return "Local storage failed. Please try again."
	}
}
