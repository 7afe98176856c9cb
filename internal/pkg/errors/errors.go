package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// Provider rejections surfaced from Rent.
	ErrNoNumbers           = errors.New("no numbers available")
	ErrPriceExceeded       = errors.New("max price exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTooManyRentals      = errors.New("too many active rentals")
	ErrBadKey              = errors.New("bad api key")

	// Lifecycle-terminal outcomes reported to awaiters.
	ErrExpired      = errors.New("verification expired")
	ErrCancelled    = errors.New("verification cancelled")
	ErrFailed       = errors.New("verification failed")
	ErrAwaitTimeout = errors.New("await timeout")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsProviderRejection(err error) bool {
	return errors.Is(err, ErrNoNumbers) ||
		errors.Is(err, ErrPriceExceeded) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrTooManyRentals)
}

func IsTerminal(err error) bool {
	return errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrFailed)
}
