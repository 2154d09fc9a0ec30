package scheduler

import "errors"

var (
	// ErrLeaseHeld is returned when another instance holds the worker lease
	ErrLeaseHeld = errors.New("lease held by another instance")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
