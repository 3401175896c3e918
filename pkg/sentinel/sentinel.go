package sentinel

import "errors"

// Sentinel dependency errors. Stores and infrastructure adapters return these
// (optionally wrapped) so services can translate them into domain errors
// exactly once.
var (
	ErrNotFound     = errors.New("not found")
	ErrNotActive    = errors.New("not active")
	ErrNotReady     = errors.New("not ready")
	ErrExpired      = errors.New("expired")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
