package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// Operation errors returned by the relationship and playlist operations.
	ErrInvalidOperation = fmt.Errorf("invalid operation")
	ErrNotFound         = fmt.Errorf("not found")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrConflict         = fmt.Errorf("conflict")
	ErrRetryable        = fmt.Errorf("retryable")
	ErrUnavailable      = fmt.Errorf("storage unavailable")

	// Storage errors
	ErrVersionConflict = fmt.Errorf("version conflict")
	ErrTimeout         = fmt.Errorf("operation timed out")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
