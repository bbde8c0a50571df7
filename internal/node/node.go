package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-touchnode/internal/actuator"
	"github.com/nerrad567/gray-logic-touchnode/internal/command"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-touchnode/internal/journal"
	"github.com/nerrad567/gray-logic-touchnode/internal/mailbox"
	"github.com/nerrad567/gray-logic-touchnode/internal/monitor"
	"github.com/nerrad567/gray-logic-touchnode/internal/sensor"
)

// Panel is the touch sensing driver plus the test hooks the API drives.
type Panel interface {
	sensor.Scanner
	SetOnScanComplete(fn func())
	Press(channel int) error
	Release(channel int) error
	Pressed(channel int) bool
}

// Deps are the collaborators a Node is built from.
type Deps struct {
	Transport Transport
	Link      monitor.LinkChecker
	Panel     Panel
	Output    actuator.Output

	// Journal stores events; nil keeps no history.
	Journal journal.Repository

	// Sinks receive every event after the journal (e.g. the InfluxDB client).
	Sinks []event.Recorder

	// Health receives health samples; nil disables them.
	Health HealthSink

	// Logger defaults to logging.Nop.
	Logger  *logging.Logger
	Version string
}

// Node owns the four workers, their mailboxes and the supporting services.
type Node struct {
	cfg       *config.Config
	transport Transport
	panel     Panel
	buttons   map[int]sensor.Button
	logger    *logging.Logger
	startTime time.Time

	sensor    *sensor.Worker
	publisher *sensor.Publisher
	actuator  *actuator.Worker
	monitor   *monitor.Monitor
	writer    *journal.Writer
	health    *HealthReporter

	runCtx atomic.Pointer[context.Context]

	// deliverMu orders deliverWG.Add against the Wait at the end of Run.
	deliverMu sync.Mutex
	stopping  bool
	deliverWG sync.WaitGroup
	reconnect atomic.Uint64
	lost      atomic.Uint64
}

// New wires the workers together.
//
// Mailbox topology:
//
//	sensor ──PublishStatus──▶ publisher ──PublishFailed──▶ monitor
//	actuator ──SubscribeFailed──▶ monitor ──Subscribe──▶ actuator
//	transport ──Disconnected──▶ monitor
//	transport message ──SetOutput──▶ actuator
func New(cfg *config.Config, deps Deps) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("node: %w", ErrNoConfig)
	}
	switch {
	case deps.Transport == nil:
		return nil, fmt.Errorf("node: %w", ErrNoTransport)
	case deps.Link == nil:
		return nil, fmt.Errorf("node: %w", ErrNoLink)
	case deps.Panel == nil:
		return nil, fmt.Errorf("node: %w", ErrNoPanel)
	case deps.Output == nil:
		return nil, fmt.Errorf("node: %w", ErrNoOutput)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	buttons, err := buttonsFromConfig(cfg.Sensor.Buttons)
	if err != nil {
		return nil, err
	}

	n := &Node{
		cfg:       cfg,
		transport: deps.Transport,
		panel:     deps.Panel,
		logger:    logger,
		startTime: time.Now(),
		buttons:   make(map[int]sensor.Button, len(buttons)),
	}
	for _, b := range buttons {
		n.buttons[b.ID] = b
	}

	n.writer = journal.NewWriter(cfg.Node.ID, deps.Journal, logger, deps.Sinks...)
	qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated 0-2

	// The monitor's mailbox exists before the monitor so the actuator and
	// publisher can hold it.
	monitorInbox := mailbox.New[command.Notice]("monitor")

	n.actuator, err = actuator.NewWorker(actuator.Subscription{
		Topic:         cfg.Actuator.SubscribeTopic,
		QoS:           qos,
		MaxRetries:    cfg.Actuator.MaxSubscribeRetries,
		RetryInterval: cfg.Actuator.SubscribeRetryInterval,
	}, deps.Transport, deps.Output, monitorInbox, logger.With("component", "actuator"), n.writer)
	if err != nil {
		return nil, err
	}

	n.monitor, err = monitor.New(monitor.Config{
		ResubscribeDelay:    cfg.Monitor.ResubscribeDelay,
		LinkPollInterval:    cfg.Monitor.LinkPollInterval,
		MaxLinkPollInterval: cfg.Monitor.MaxLinkPollInterval,
		MaxLinkPolls:        cfg.Monitor.MaxLinkPolls,
	}, deps.Link, monitorInbox, n.actuator.Inbox(), logger.With("component", "monitor"), n.writer)
	if err != nil {
		return nil, err
	}

	n.publisher, err = sensor.NewPublisher(sensor.PublishConfig{
		Topic: cfg.Sensor.PublishTopic,
		QoS:   qos,
	}, deps.Transport, monitorInbox, logger.With("component", "publisher"), n.writer)
	if err != nil {
		return nil, err
	}

	n.sensor, err = sensor.NewWorker(sensor.Config{
		ScanInterval: cfg.Sensor.ScanInterval,
		Buttons:      buttons,
	}, deps.Panel, n.publisher.Inbox(), logger.With("component", "sensor"), n.writer)
	if err != nil {
		return nil, err
	}

	n.health = NewHealthReporter(cfg.Node.ID, cfg.Node.Name, deps.Version,
		cfg.Node.HealthInterval, deps.Transport, n.Status, deps.Health)
	n.health.SetLogger(logger)

	deps.Panel.SetOnScanComplete(n.sensor.OnScanComplete)
	deps.Transport.SetOnDisconnect(n.onTransportLost)
	deps.Transport.SetOnConnect(n.onTransportConnected)

	return n, nil
}

// Run starts every worker and blocks until ctx is cancelled. The journal
// writer outlives the workers so their last events are stored.
func (n *Node) Run(ctx context.Context) error {
	n.runCtx.Store(&ctx)
	defer func() {
		n.deliverMu.Lock()
		n.stopping = true
		n.deliverMu.Unlock()
		n.deliverWG.Wait()
	}()

	writerCtx, stopWriter := context.WithCancel(context.WithoutCancel(ctx))
	writerDone := make(chan error, 1)
	go func() { writerDone <- n.writer.Run(writerCtx) }()

	n.logger.Info("node starting",
		"node_id", n.cfg.Node.ID,
		"publish_topic", n.cfg.Sensor.PublishTopic,
		"subscribe_topic", n.cfg.Actuator.SubscribeTopic,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.monitor.Run(gctx) })
	g.Go(func() error { return n.actuator.Run(gctx) })
	g.Go(func() error { return n.publisher.Run(gctx) })
	g.Go(func() error { return n.sensor.Run(gctx) })
	g.Go(func() error { return n.health.Run(gctx) })

	err := g.Wait()

	stopWriter()
	if werr := <-writerDone; werr != nil && err == nil {
		err = werr
	}

	n.logger.Info("node stopped", "node_id", n.cfg.Node.ID)
	return err
}

// onTransportLost delivers Disconnected to the monitor. It runs on a
// transport goroutine and never blocks: when the monitor's slot is taken the
// notice is handed to a goroutine that waits for it.
func (n *Node) onTransportLost(err error) {
	n.lost.Add(1)
	notice := command.Notify(command.Disconnected, err)

	if n.monitor.Inbox().TrySend(notice) == nil {
		return
	}

	ctxp := n.runCtx.Load()
	if ctxp == nil {
		return
	}
	ctx := *ctxp

	n.deliverMu.Lock()
	if n.stopping || ctx.Err() != nil {
		n.deliverMu.Unlock()
		n.logger.Debug("disconnect notice dropped, node stopping")
		return
	}
	n.deliverWG.Add(1)
	n.deliverMu.Unlock()

	go func() {
		defer n.deliverWG.Done()
		if err := n.monitor.Inbox().Send(ctx, notice); err != nil {
			n.logger.Debug("disconnect notice abandoned", "error", err)
		}
	}()
}

// onTransportConnected nudges a monitor that is still waiting for the link,
// so it re-checks now rather than at its next poll.
func (n *Node) onTransportConnected() {
	n.reconnect.Add(1)
	if n.monitor.Status().Phase != monitor.AwaitingLink {
		return
	}
	if err := n.monitor.Inbox().TrySend(command.Notify(command.Disconnected, nil)); err != nil {
		n.logger.Debug("reconnect nudge skipped, monitor busy")
	}
}

// Press touches a configured button on the panel.
func (n *Node) Press(buttonID int) error {
	if _, ok := n.buttons[buttonID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownButton, buttonID)
	}
	return n.panel.Press(buttonID)
}

// Release lifts a configured button on the panel.
func (n *Node) Release(buttonID int) error {
	if _, ok := n.buttons[buttonID]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownButton, buttonID)
	}
	return n.panel.Release(buttonID)
}

// Subscribe asks the actuator to (re)subscribe to the command topic.
func (n *Node) Subscribe(ctx context.Context) error {
	return n.command(ctx, command.New(command.Subscribe))
}

// Unsubscribe asks the actuator to drop the command topic.
func (n *Node) Unsubscribe(ctx context.Context) error {
	return n.command(ctx, command.New(command.Unsubscribe))
}

func (n *Node) command(ctx context.Context, cmd command.Command) error {
	if err := n.actuator.Inbox().Send(ctx, cmd); err != nil {
		return fmt.Errorf("queueing %s: %w", cmd, err)
	}
	return nil
}

// Monitor returns the connectivity monitor.
func (n *Node) Monitor() *monitor.Monitor { return n.monitor }

// Actuator returns the actuator worker.
func (n *Node) Actuator() *actuator.Worker { return n.actuator }

func buttonsFromConfig(cfgs []config.ButtonConfig) ([]sensor.Button, error) {
	buttons := make([]sensor.Button, 0, len(cfgs))
	for _, bc := range cfgs {
		on, ok := command.ParsePayload([]byte(bc.Publishes))
		if !ok {
			return nil, fmt.Errorf("node: button %d: %w: %q", bc.ID, ErrInvalidButton, bc.Publishes)
		}
		buttons = append(buttons, sensor.Button{ID: bc.ID, Name: bc.Name, On: on})
	}
	if len(buttons) == 0 {
		return nil, errors.Join(ErrInvalidButton, sensor.ErrNoButtons)
	}
	return buttons, nil
}

