package link

import "errors"

var (
	// ErrUnknownStrategy is returned for a probe name other than dial, interface or mqtt.
	ErrUnknownStrategy = errors.New("link: unknown probe strategy")

	// ErrInvalidConfig is returned when a strategy is missing a required setting.
	ErrInvalidConfig = errors.New("link: invalid probe configuration")
)
