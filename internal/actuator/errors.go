package actuator

import "errors"

var (
	// ErrRetryBudgetExhausted is carried by the SubscribeFailed notice.
	ErrRetryBudgetExhausted = errors.New("actuator: subscribe retry budget exhausted")

	// ErrMalformedMessage is returned by OnMessage for an undecodable payload.
	ErrMalformedMessage = errors.New("actuator: malformed message")

	ErrNoTransport    = errors.New("transport is required")
	ErrNoOutput       = errors.New("output device is required")
	ErrNoMailbox      = errors.New("monitor mailbox is required")
	ErrNoTopic        = errors.New("subscribe topic is required")
	ErrInvalidRetries = errors.New("max retries must be at least 1")
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
