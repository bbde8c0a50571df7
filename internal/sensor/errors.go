package sensor

import "errors"

var (
	// ErrScanBusy is wrapped by Scanner.StartScan when a scan is already running.
	ErrScanBusy = errors.New("sensor: scan in progress")

	// ErrNoScanner is returned when a worker is built without a driver.
	ErrNoScanner = errors.New("scanner is required")

	// ErrNoTransport is returned when a publisher is built without a transport.
	ErrNoTransport = errors.New("transport is required")

	// ErrNoMailbox is returned when a required peer mailbox is missing.
	ErrNoMailbox = errors.New("peer mailbox is required")

	// ErrNoTopic is returned when the publish topic is empty.
	ErrNoTopic = errors.New("publish topic is required")

	// ErrNoButtons is returned when no buttons are configured.
	ErrNoButtons = errors.New("at least one button is required")

	// ErrInvalidInterval is returned for a non-positive scan interval.
	ErrInvalidInterval = errors.New("scan interval must be positive")
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
