package apperrors

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")

	// Capability and storage failures. The SOS controller degrades on all of
	// these instead of failing activation.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrCapabilityTimeout     = errors.New("capability timeout")
	ErrDeviceBusy            = errors.New("device busy")
	ErrStorageWrite          = errors.New("storage write failure")
)
