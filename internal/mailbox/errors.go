package mailbox

import "errors"

var (
	// ErrFull is returned by TrySend when the slot is occupied.
	ErrFull = errors.New("mailbox: slot occupied")

	// ErrSendCancelled is returned by Send when its context ends first.
	ErrSendCancelled = errors.New("mailbox: send cancelled")
)
