package node

import "errors"

var (
	ErrNoConfig    = errors.New("config is required")
	ErrNoTransport = errors.New("transport is required")
	ErrNoLink      = errors.New("link checker is required")
	ErrNoPanel     = errors.New("touch panel is required")
	ErrNoOutput    = errors.New("output device is required")

	// ErrInvalidButton is returned for a button whose status is not "on" or "off".
	ErrInvalidButton = errors.New("invalid button mapping")

	// ErrUnknownButton is returned by Press and Release for an unconfigured button.
	ErrUnknownButton = errors.New("unknown button")
)
