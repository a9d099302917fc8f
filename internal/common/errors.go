// Package common defines shared constants and sentinel errors used across
// client and server layers of spendsync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors for records entering the local store.
	ErrValidation = errors.New("validation error")

	// Service-level errors.
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrOffline is returned by operations that require connectivity
	// (manual sync) when the runtime reports the device as offline.
	ErrOffline = errors.New("device is offline")

	// ErrUnavailable means the remote store could not be reached. Background
	// sync swallows it; records simply stay unsynced.
	ErrUnavailable = errors.New("server unavailable")

	// ErrLocalDataNotAvailable is returned by offline login when no
	// credentials were cached by a previous online login.
	ErrLocalDataNotAvailable = errors.New("local data unavailable")

	// Auth token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
