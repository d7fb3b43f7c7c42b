package domain

import "errors"

// Domain errors
var (
	// Spot errors
	ErrSpotNotFound     = errors.New("spot not found")
	ErrSpotNotAvailable = errors.New("spot is not available")

	// Reservation errors
	ErrReservationNotFound = errors.New("reservation not found")
	ErrSpotAlreadyReserved = errors.New("spot already has a pending or active reservation")

	// Validation errors
	ErrInvalidSpotID     = errors.New("invalid spot id")
	ErrInvalidPlate      = errors.New("invalid plate number")
	ErrInvalidContact    = errors.New("contact must be an email address or phone number")
	ErrInvalidDuration   = errors.New("duration must be positive or unlimited")
	ErrInvalidSpotStatus = errors.New("invalid spot status")

	// Concurrency errors
	ErrConcurrencyConflict = errors.New("concurrent update conflict, retry the operation")

	// Maintenance-mode errors
	ErrSystemDisabled       = errors.New("system is in maintenance mode")
	ErrReservationsDisabled = errors.New("reservation system is temporarily disabled")
	ErrANPRDisabled         = errors.New("anpr system is temporarily disabled")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
)

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSpotNotFound) ||
		errors.Is(err, ErrReservationNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidSpotID) ||
		errors.Is(err, ErrInvalidPlate) ||
		errors.Is(err, ErrInvalidContact) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrInvalidSpotStatus)
}

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) ||
		errors.Is(err, ErrSpotNotAvailable) ||
		errors.Is(err, ErrSpotAlreadyReserved)
}

// IsDisabledError checks if the error signals maintenance mode
func IsDisabledError(err error) bool {
	return errors.Is(err, ErrSystemDisabled) ||
		errors.Is(err, ErrReservationsDisabled) ||
		errors.Is(err, ErrANPRDisabled)
}
