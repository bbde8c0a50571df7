package actuator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/command"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/mailbox"
)

const component = "actuator"

// maxLoggedPayload bounds how much of a malformed payload ends up in errors.
const maxLoggedPayload = 32

// Transport is the inbound half of the messaging client.
type Transport interface {
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
}

// Output drives the physical (or simulated) output device.
type Output interface {
	Set(on bool) error
}

// Logger is the logging interface used by the Actuator Worker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Subscription describes the single topic the worker listens on and the
// inner retry budget used for every Subscribe command.
type Subscription struct {
	Topic         string
	QoS           byte
	MaxRetries    int
	RetryInterval time.Duration
}

// State is the worker's view of its subscription.
type State int32

const (
	Unsubscribed State = iota
	Subscribed
)

// String returns "subscribed" or "unsubscribed".
func (s State) String() string {
	if s == Subscribed {
		return "subscribed"
	}
	return "unsubscribed"
}

// Worker keeps the subscription alive and applies inbound commands to the output.
type Worker struct {
	sub       Subscription
	transport Transport
	output    Output
	inbox     *mailbox.Mailbox[command.Command]
	monitor   *mailbox.Mailbox[command.Notice]
	logger    Logger
	recorder  event.Recorder

	ctx       atomic.Pointer[context.Context]
	state     atomic.Int32
	outputOn  atomic.Bool
	malformed atomic.Uint64
}

// NewWorker creates an Actuator Worker.
//
// Parameters:
//   - sub: topic and retry budget
//   - transport: messaging client
//   - output: output device
//   - monitor: the connectivity monitor's mailbox
//   - logger, recorder: optional
func NewWorker(sub Subscription, transport Transport, output Output, monitor *mailbox.Mailbox[command.Notice], logger Logger, recorder event.Recorder) (*Worker, error) {
	switch {
	case transport == nil:
		return nil, fmt.Errorf("actuator: %w", ErrNoTransport)
	case output == nil:
		return nil, fmt.Errorf("actuator: %w", ErrNoOutput)
	case monitor == nil:
		return nil, fmt.Errorf("actuator: %w", ErrNoMailbox)
	case sub.Topic == "":
		return nil, fmt.Errorf("actuator: %w", ErrNoTopic)
	case sub.MaxRetries < 1:
		return nil, fmt.Errorf("actuator: %w: %d", ErrInvalidRetries, sub.MaxRetries)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if recorder == nil {
		recorder = event.Discard
	}

	return &Worker{
		sub:       sub,
		transport: transport,
		output:    output,
		inbox:     mailbox.New[command.Command]("actuator"),
		monitor:   monitor,
		logger:    logger,
		recorder:  recorder,
	}, nil
}

// Inbox returns the worker's mailbox.
func (w *Worker) Inbox() *mailbox.Mailbox[command.Command] {
	return w.inbox
}

// State returns the current subscription state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// OutputOn returns the last value successfully written to the output.
func (w *Worker) OutputOn() bool {
	return w.outputOn.Load()
}

// Malformed returns how many inbound messages failed to decode.
func (w *Worker) Malformed() uint64 {
	return w.malformed.Load()
}

// Topic returns the subscription topic.
func (w *Worker) Topic() string {
	return w.sub.Topic
}

// Run drives the output off, subscribes, then processes commands until ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.ctx.Store(&ctx)

	w.Start(ctx)

	for {
		cmd, err := w.inbox.Receive(ctx)
		if err != nil {
			w.logger.Info("actuator worker stopped")
			return nil
		}
		w.handle(ctx, cmd)
	}
}

// Start puts the output in its initial off state and makes the first
// subscription attempt.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("actuator worker started", "topic", w.sub.Topic, "max_retries", w.sub.MaxRetries)
	w.setOutput(false)
	w.subscribe(ctx)
}

func (w *Worker) handle(ctx context.Context, cmd command.Command) {
	switch cmd.Kind {
	case command.Subscribe:
		w.subscribe(ctx)
	case command.Unsubscribe:
		w.unsubscribe()
	case command.SetOutput:
		w.setOutput(cmd.On)
	default:
		w.logger.Warn("actuator worker ignoring command", "command", cmd.String())
	}
}

// subscribe makes up to MaxRetries attempts, pausing RetryInterval between
// them. When the budget is exhausted it sends exactly one SubscribeFailed
// notice to the monitor.
func (w *Worker) subscribe(ctx context.Context) {
	var lastErr error
	for attempt := 1; attempt <= w.sub.MaxRetries; attempt++ {
		err := w.transport.Subscribe(w.sub.Topic, w.sub.QoS, w.OnMessage)
		if err == nil {
			w.state.Store(int32(Subscribed))
			w.logger.Info("subscribed", "topic", w.sub.Topic, "attempt", attempt)
			w.recorder.Record(event.New(event.Subscribed, component).WithTopic(w.sub.Topic))
			return
		}

		lastErr = err
		w.logger.Warn("subscribe attempt failed",
			"topic", w.sub.Topic,
			"attempt", attempt,
			"max_retries", w.sub.MaxRetries,
			"error", err,
		)

		if attempt < w.sub.MaxRetries && !sleepCtx(ctx, w.sub.RetryInterval) {
			return
		}
	}

	w.state.Store(int32(Unsubscribed))
	err := fmt.Errorf("%w after %d attempts: %w", ErrRetryBudgetExhausted, w.sub.MaxRetries, lastErr)
	w.logger.Error("subscribe failed", "topic", w.sub.Topic, "error", err)
	w.recorder.Record(event.New(event.SubscribeFailed, component).WithTopic(w.sub.Topic).WithErr(err))

	if err := w.monitor.Send(ctx, command.Notify(command.SubscribeFailed, err)); err != nil {
		w.logger.Debug("subscribe failure notice abandoned", "error", err)
	}
}

// unsubscribe makes a single attempt. Failure is logged only.
func (w *Worker) unsubscribe() {
	if err := w.transport.Unsubscribe(w.sub.Topic); err != nil {
		w.logger.Warn("unsubscribe failed", "topic", w.sub.Topic, "error", err)
	} else {
		w.logger.Info("unsubscribed", "topic", w.sub.Topic)
	}
	w.state.Store(int32(Unsubscribed))
	w.recorder.Record(event.New(event.Unsubscribed, component).WithTopic(w.sub.Topic))
}

func (w *Worker) setOutput(on bool) {
	if err := w.output.Set(on); err != nil {
		w.logger.Error("output write failed", "on", on, "error", err)
		return
	}
	w.outputOn.Store(on)
	w.logger.Debug("output set", "on", on)
	w.recorder.Record(event.New(event.OutputSet, component).WithValue(on))
}

// OnMessage is the transport's message callback. Messages on other topics are
// ignored. A payload that is not exactly "on" or "off" returns an error
// wrapping ErrMalformedMessage and changes nothing. A valid payload queues
// SetOutput on the worker's own mailbox.
func (w *Worker) OnMessage(topic string, payload []byte) error {
	if topic != w.sub.Topic {
		return nil
	}

	on, ok := command.ParsePayload(payload)
	if !ok {
		w.malformed.Add(1)
		err := fmt.Errorf("%w: topic %s payload %q", ErrMalformedMessage, topic, truncate(payload))
		w.recorder.Record(event.New(event.MalformedMessage, component).WithTopic(topic).WithErr(err))
		return err
	}

	if err := w.inbox.Send(w.runContext(), command.Output(on)); err != nil {
		return fmt.Errorf("queueing output command: %w", err)
	}
	return nil
}

// runContext returns the context Run was started with, or Background before that.
func (w *Worker) runContext() context.Context {
	if p := w.ctx.Load(); p != nil {
		return *p
	}
	return context.Background()
}

func truncate(payload []byte) string {
	if len(payload) > maxLoggedPayload {
		return string(payload[:maxLoggedPayload]) + "..."
	}
	return string(payload)
}

// sleepCtx waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
