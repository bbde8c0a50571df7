package hal

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-touchnode/internal/sensor"
)

var (
	// ErrScanBusy is returned by StartScan while a scan is running.
	ErrScanBusy = fmt.Errorf("hal: touch panel busy: %w", sensor.ErrScanBusy)

	// ErrClosed is returned by StartScan after Close.
	ErrClosed = errors.New("hal: touch panel closed")

	// ErrInvalidChannels is returned for a panel with no channels.
	ErrInvalidChannels = errors.New("hal: channel count must be positive")

	// ErrUnknownChannel is returned by Press and Release for an out-of-range channel.
	ErrUnknownChannel = errors.New("hal: unknown channel")

	// ErrUnknownDriver is returned for an output driver other than memory, file or modbus.
	ErrUnknownDriver = errors.New("hal: unknown output driver")

	// ErrInvalidOutput is returned when an output driver is missing a setting.
	ErrInvalidOutput = errors.New("hal: invalid output configuration")
)
