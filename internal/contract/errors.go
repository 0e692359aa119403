package contract

import "errors"

var (
	// ErrUnknownEvent is returned for logs whose topic0 is not a tracked escrow event.
	ErrUnknownEvent = errors.New("unknown escrow event")
	// ErrDecode wraps payload shape mismatches.
	ErrDecode = errors.New("decode escrow payload")
)
