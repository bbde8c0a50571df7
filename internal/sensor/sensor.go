package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/command"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/mailbox"
)

const component = "sensor"

// Scanner is the capability the Sensor Worker needs from a touch sensing driver.
//
// StartScan returns an error wrapping ErrScanBusy when a scan is in progress.
// Completion is reported asynchronously through the callback the driver was
// given (see Worker.OnScanComplete). IsBusy must read live driver state.
type Scanner interface {
	StartScan() error
	IsBusy() bool
	IsActive(button int) bool
}

// Logger is the logging interface used by the workers in this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Button maps a sensing channel to the status it publishes on a rising edge.
type Button struct {
	ID   int
	Name string
	On   bool
}

// Config holds Sensor Worker settings.
type Config struct {
	ScanInterval time.Duration
	Buttons      []Button
}

// Worker triggers periodic touch scans and turns rising edges into
// PublishStatus commands for the Publish Worker.
type Worker struct {
	cfg      Config
	scanner  Scanner
	inbox    *mailbox.Mailbox[command.Command]
	outbox   *mailbox.Mailbox[command.Command]
	edges    *edgeDetector
	logger   Logger
	recorder event.Recorder

	scans atomic.Uint64
	edgeN atomic.Uint64
}

// NewWorker creates a Sensor Worker.
//
// Parameters:
//   - cfg: scan interval and button mapping
//   - scanner: touch sensing driver
//   - outbox: the Publish Worker's mailbox
//   - logger, recorder: optional; nil values disable logging or recording
func NewWorker(cfg Config, scanner Scanner, outbox *mailbox.Mailbox[command.Command], logger Logger, recorder event.Recorder) (*Worker, error) {
	if scanner == nil {
		return nil, fmt.Errorf("sensor: %w", ErrNoScanner)
	}
	if outbox == nil {
		return nil, fmt.Errorf("sensor: %w", ErrNoMailbox)
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("sensor: %w: %v", ErrInvalidInterval, cfg.ScanInterval)
	}
	if len(cfg.Buttons) == 0 {
		return nil, fmt.Errorf("sensor: %w", ErrNoButtons)
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if recorder == nil {
		recorder = event.Discard
	}

	return &Worker{
		cfg:      cfg,
		scanner:  scanner,
		inbox:    mailbox.New[command.Command]("sensor"),
		outbox:   outbox,
		edges:    newEdgeDetector(len(cfg.Buttons)),
		logger:   logger,
		recorder: recorder,
	}, nil
}

// Inbox returns the worker's own mailbox.
func (w *Worker) Inbox() *mailbox.Mailbox[command.Command] {
	return w.inbox
}

// Scans returns how many completed scans have been processed.
func (w *Worker) Scans() uint64 {
	return w.scans.Load()
}

// Edges returns how many rising edges have been detected.
func (w *Worker) Edges() uint64 {
	return w.edgeN.Load()
}

// Run starts the scan timer and processes commands until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.tickLoop(ctx)
	}()
	defer wg.Wait()

	w.logger.Info("sensor worker started",
		"scan_interval", w.cfg.ScanInterval,
		"buttons", len(w.cfg.Buttons),
	)

	for {
		cmd, err := w.inbox.Receive(ctx)
		if err != nil {
			w.logger.Info("sensor worker stopped")
			return nil
		}
		w.handle(ctx, cmd)
	}
}

// tickLoop is the periodic scan trigger.
func (w *Worker) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.OnTimerTick()
		}
	}
}

// OnTimerTick requests a scan unless the driver is still busy. It never blocks.
func (w *Worker) OnTimerTick() {
	if w.scanner.IsBusy() {
		return
	}
	// A full slot means a StartScan or ProcessScan is already queued.
	_ = w.inbox.TrySend(command.New(command.StartScan)) //nolint:errcheck // Next tick retries
}

// OnScanComplete is the driver's completion callback. It never blocks; a
// result that finds the mailbox occupied is dropped and logged.
func (w *Worker) OnScanComplete() {
	if err := w.inbox.TrySend(command.New(command.ProcessScan)); err != nil {
		w.logger.Warn("scan result dropped", "error", err)
		w.recorder.Record(event.New(event.CommandDropped, component).WithErr(err))
	}
}

func (w *Worker) handle(ctx context.Context, cmd command.Command) {
	switch cmd.Kind {
	case command.StartScan:
		if err := w.scanner.StartScan(); err != nil {
			if errors.Is(err, ErrScanBusy) {
				return
			}
			w.logger.Warn("start scan failed", "error", err)
		}

	case command.ProcessScan:
		w.processScan(ctx)

	default:
		w.logger.Warn("sensor worker ignoring command", "command", cmd.String())
	}
}

// processScan evaluates every button for a rising edge and forwards one
// PublishStatus per edge. Previous flags are updated for every button.
func (w *Worker) processScan(ctx context.Context) {
	w.scans.Add(1)

	for i, b := range w.cfg.Buttons {
		if !w.edges.rising(i, w.scanner.IsActive(b.ID)) {
			continue
		}

		w.edgeN.Add(1)
		w.logger.Debug("button pressed", "button", b.ID, "name", b.Name, "publishes", command.Payload(b.On))
		w.recorder.Record(event.New(event.ButtonPressed, component).WithValue(b.On))

		if err := w.outbox.Send(ctx, command.Publish(b.On)); err != nil {
			w.logger.Debug("publish request abandoned", "error", err)
			return
		}
	}
}
