package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrNoNumbers
	ErrPriceExceeded
	ErrInsufficientBalance
	ErrTooManyRentals
	ErrExpired
	ErrCancelled
	ErrFailed
	ErrAwaitTimeout
	ErrExportFailed
)
