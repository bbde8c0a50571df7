package monitor

import "errors"

var (
	ErrNoLinkChecker    = errors.New("link checker is required")
	ErrNoMailbox        = errors.New("actuator mailbox is required")
	ErrInvalidInterval  = errors.New("link poll interval must be positive")
	ErrInvalidPollLimit = errors.New("max link polls cannot be negative")
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
