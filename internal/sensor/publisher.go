package sensor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-touchnode/internal/command"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/mailbox"
)

const publishComponent = "publisher"

// Transport is the outbound half of the messaging client.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// PublishConfig holds Publish Worker settings.
type PublishConfig struct {
	Topic string
	QoS   byte
}

// Publisher publishes "on"/"off" status messages and reports failures to the
// connectivity monitor. It never retries on its own.
type Publisher struct {
	cfg       PublishConfig
	transport Transport
	inbox     *mailbox.Mailbox[command.Command]
	monitor   *mailbox.Mailbox[command.Notice]
	logger    Logger
	recorder  event.Recorder

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewPublisher creates a Publish Worker.
func NewPublisher(cfg PublishConfig, transport Transport, monitor *mailbox.Mailbox[command.Notice], logger Logger, recorder event.Recorder) (*Publisher, error) {
	if transport == nil {
		return nil, fmt.Errorf("publisher: %w", ErrNoTransport)
	}
	if monitor == nil {
		return nil, fmt.Errorf("publisher: %w", ErrNoMailbox)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("publisher: %w", ErrNoTopic)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if recorder == nil {
		recorder = event.Discard
	}

	return &Publisher{
		cfg:       cfg,
		transport: transport,
		inbox:     mailbox.New[command.Command]("publisher"),
		monitor:   monitor,
		logger:    logger,
		recorder:  recorder,
	}, nil
}

// Inbox returns the Publish Worker's mailbox.
func (p *Publisher) Inbox() *mailbox.Mailbox[command.Command] {
	return p.inbox
}

// Published returns the number of successful publishes.
func (p *Publisher) Published() uint64 {
	return p.published.Load()
}

// Failed returns the number of failed publishes.
func (p *Publisher) Failed() uint64 {
	return p.failed.Load()
}

// Run processes PublishStatus commands until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("publish worker started", "topic", p.cfg.Topic)

	for {
		cmd, err := p.inbox.Receive(ctx)
		if err != nil {
			p.logger.Info("publish worker stopped")
			return nil
		}
		p.handle(ctx, cmd)
	}
}

func (p *Publisher) handle(ctx context.Context, cmd command.Command) {
	if cmd.Kind != command.PublishStatus {
		p.logger.Warn("publish worker ignoring command", "command", cmd.String())
		return
	}

	payload := command.Payload(cmd.On)
	err := p.transport.Publish(p.cfg.Topic, []byte(payload), p.cfg.QoS, false)
	if err == nil {
		p.published.Add(1)
		p.logger.Debug("status published", "topic", p.cfg.Topic, "payload", payload)
		p.recorder.Record(event.New(event.StatusPublished, publishComponent).WithTopic(p.cfg.Topic).WithValue(cmd.On))
		return
	}

	p.failed.Add(1)
	p.logger.Warn("status publish failed", "topic", p.cfg.Topic, "payload", payload, "error", err)
	p.recorder.Record(event.New(event.PublishFailed, publishComponent).WithTopic(p.cfg.Topic).WithValue(cmd.On).WithErr(err))

	if err := p.monitor.Send(ctx, command.Notify(command.PublishFailed, err)); err != nil {
		p.logger.Debug("publish failure notice abandoned", "error", err)
	}
}
