package apperrors

import "errors"

var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrCouponNotFound  = errors.New("coupon not found")
	ErrInvalidInput    = errors.New("invalid input")

	// ErrStatusConflict is returned when a conditional write finds the row no
	// longer in the expected state: some other caller won the race. The
	// coordinator re-reads and classifies instead of retrying blindly.
	ErrStatusConflict = errors.New("status changed since read")

	ErrRedemptionNotFound = errors.New("redemption not found")

	// ErrStorageUnavailable marks transient infrastructure failures. Callers
	// may retry with the same code; check-in and redemption are idempotent
	// per key.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
