package devices

import "errors"

var (
	// ErrBus is returned when the USB transport itself fails. It is never
	// retried.
	ErrBus = errors.New("bus error")
	// ErrTimedOut is returned when a flash status register did not reach the
	// expected value within its retry budget.
	ErrTimedOut = errors.New("timed out")
	// ErrAuthFailed is returned when the hub rejects an authentication
	// challenge.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrNotSupported is returned for unknown or end-of-life chips, legacy
	// tool strings and unknown flash parts.
	ErrNotSupported = errors.New("not supported")
	// ErrChecksumMismatch is returned when a firmware image checksum does
	// not match its contents.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrInvalidFile is returned for malformed or oversized firmware images.
	ErrInvalidFile = errors.New("invalid file")
	// ErrSignatureInvalid is returned when a firmware signature or public
	// key does not match what's expected.
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrVerifyMismatch is returned when flash contents read back after a
	// write differ from what was written.
	ErrVerifyMismatch = errors.New("verify mismatch")
)
