// Package services defines the business logic for device registration,
// lending, and rental history.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Device-related errors.
var (
	// ErrDeviceNotFound indicates that the requested device does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceInUse is returned when a lending operation requires the device
	// to be available but it is currently borrowed.
	ErrDeviceInUse = errors.New("device is in use")

	// ErrDeviceNotInUse is returned when a return operation targets a device
	// that is not currently borrowed.
	ErrDeviceNotInUse = errors.New("device is not in use")

	// ErrNotHolder is returned when a user attempts to return a device that
	// is borrowed by somebody else.
	ErrNotHolder = errors.New("device is held by another user")

	// ErrDuplicateDevice is returned when registration would reuse a hardware
	// UUID that is already registered.
	ErrDuplicateDevice = errors.New("device already registered")

	// ErrValidation is returned when request input fails validation. Callers
	// wrap it with a human-readable detail via fmt.Errorf.
	ErrValidation = errors.New("validation failed")
)

// History-related errors.
var (
	// ErrRecordNotFound indicates that the requested rental history record
	// does not exist.
	ErrRecordNotFound = errors.New("history record not found")
)
