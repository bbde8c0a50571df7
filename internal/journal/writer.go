package journal

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/event"
)

const (
	// DefaultQueueSize is the number of events buffered between workers and storage.
	DefaultQueueSize = 256

	appendTimeout = 2 * time.Second
)

// Logger is the logging surface the writer and Retain need.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Writer is an event.Recorder that persists events off the caller's goroutine.
//
// Record never blocks: events are queued and a full queue drops the event
// and counts it. Run drains the queue into the repository and fans each
// event out to the extra sinks (for example the InfluxDB client).
type Writer struct {
	nodeID  string
	repo    Repository
	sinks   []event.Recorder
	logger  Logger
	queue   chan event.Event
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewWriter creates a writer that stamps events with nodeID. repo may be nil
// when only sinks are wanted.
func NewWriter(nodeID string, repo Repository, logger Logger, sinks ...event.Recorder) *Writer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Writer{
		nodeID: nodeID,
		repo:   repo,
		sinks:  sinks,
		logger: logger,
		queue:  make(chan event.Event, DefaultQueueSize),
	}
}

// Record queues e, dropping it when the queue is full.
func (w *Writer) Record(e event.Event) {
	if e.NodeID == "" {
		e.NodeID = w.nodeID
	}
	select {
	case w.queue <- e:
	default:
		w.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Failed returns how many events could not be stored.
func (w *Writer) Failed() uint64 { return w.failed.Load() }

// Run persists queued events until ctx is cancelled, then flushes what is
// already queued and returns nil.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx))
			return nil
		case e := <-w.queue:
			w.write(ctx, e)
		}
	}
}

func (w *Writer) flush(ctx context.Context) {
	for {
		select {
		case e := <-w.queue:
			w.write(ctx, e)
		default:
			return
		}
	}
}

func (w *Writer) write(ctx context.Context, e event.Event) {
	if w.repo != nil {
		appendCtx, cancel := context.WithTimeout(ctx, appendTimeout)
		err := w.repo.Append(appendCtx, &e)
		cancel()
		if err != nil {
			w.failed.Add(1)
			w.logger.Warn("journal append failed", "kind", e.Kind, "error", err)
		}
	}
	for _, sink := range w.sinks {
		sink.Record(e)
	}
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}
