package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/command"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/mailbox"
)

const component = "monitor"

// LinkChecker reports whether the link layer is currently usable.
type LinkChecker interface {
	IsLinkUp() bool
}

// Logger is the logging interface used by the monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds monitor timing.
type Config struct {
	// ResubscribeDelay is the wait before re-issuing Subscribe after SubscribeFailed.
	ResubscribeDelay time.Duration

	// LinkPollInterval is the delay before the first link re-check.
	LinkPollInterval time.Duration

	// MaxLinkPollInterval caps the doubling re-check delay.
	MaxLinkPollInterval time.Duration

	// MaxLinkPolls bounds the re-checks per outage. 0 means unbounded.
	MaxLinkPolls int
}

// Monitor reacts to failure notices and drives reconnection.
//
// Delayed actions run on timers owned by the monitor, so its receive loop
// never sleeps and never blocks on a send to another worker.
type Monitor struct {
	cfg      Config
	link     LinkChecker
	inbox    *mailbox.Mailbox[command.Notice]
	actuator *mailbox.Mailbox[command.Command]
	logger   Logger
	recorder event.Recorder

	mu     sync.RWMutex
	status Status

	// pollCancel stops the outstanding link poll. Monitor goroutine only.
	pollCancel  context.CancelFunc
	activePolls atomic.Int32

	wg sync.WaitGroup
}

// New creates a connectivity monitor that sends Subscribe commands to actuator.
//
// inbox may be supplied when peers must hold the monitor's mailbox before
// the monitor exists; nil creates one.
func New(cfg Config, link LinkChecker, inbox *mailbox.Mailbox[command.Notice], actuator *mailbox.Mailbox[command.Command], logger Logger, recorder event.Recorder) (*Monitor, error) {
	switch {
	case link == nil:
		return nil, fmt.Errorf("monitor: %w", ErrNoLinkChecker)
	case actuator == nil:
		return nil, fmt.Errorf("monitor: %w", ErrNoMailbox)
	case cfg.LinkPollInterval <= 0:
		return nil, fmt.Errorf("monitor: %w: %v", ErrInvalidInterval, cfg.LinkPollInterval)
	case cfg.MaxLinkPolls < 0:
		return nil, fmt.Errorf("monitor: %w: %d", ErrInvalidPollLimit, cfg.MaxLinkPolls)
	}
	if cfg.MaxLinkPollInterval < cfg.LinkPollInterval {
		cfg.MaxLinkPollInterval = cfg.LinkPollInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	if recorder == nil {
		recorder = event.Discard
	}
	if inbox == nil {
		inbox = mailbox.New[command.Notice]("monitor")
	}

	return &Monitor{
		cfg:      cfg,
		link:     link,
		inbox:    inbox,
		actuator: actuator,
		logger:   logger,
		recorder: recorder,
		status:   Status{Phase: Operational},
	}, nil
}

// Inbox returns the monitor's mailbox.
func (m *Monitor) Inbox() *mailbox.Mailbox[command.Notice] {
	return m.inbox
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Run processes notices until ctx is cancelled. Pending timers are stopped
// and waited for before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.logger.Info("connectivity monitor started",
		"resubscribe_delay", m.cfg.ResubscribeDelay,
		"link_poll_interval", m.cfg.LinkPollInterval,
		"max_link_polls", m.cfg.MaxLinkPolls,
	)

	for {
		n, err := m.inbox.Receive(ctx)
		if err != nil {
			m.logger.Info("connectivity monitor stopped")
			return nil
		}
		m.handle(ctx, n)
	}
}

func (m *Monitor) handle(ctx context.Context, n command.Notice) {
	m.mu.Lock()
	m.status.LastNotice = n.Kind
	m.status.LastNoticeAt = time.Now().UTC()
	m.mu.Unlock()

	switch n.Kind {
	case command.PublishFailed:
		m.logger.Warn("publish failure reported", "error", n.Err)

	case command.SubscribeFailed:
		m.logger.Warn("subscribe failure reported, retrying later",
			"delay", m.cfg.ResubscribeDelay,
			"error", n.Err,
		)
		m.after(ctx, m.cfg.ResubscribeDelay, func(ctx context.Context) {
			m.requestSubscribe(ctx, "subscribe_failed")
		})

	case command.Disconnected:
		m.onDisconnected(ctx, n)

	default:
		m.logger.Warn("monitor ignoring notice", "notice", n.Kind.String())
	}
}

// onDisconnected checks the link once. When it is up the actuator is asked
// to resubscribe; otherwise another Disconnected is queued to this monitor
// after the poll delay.
func (m *Monitor) onDisconnected(ctx context.Context, n command.Notice) {
	m.cancelPoll()

	m.mu.Lock()
	if m.status.Phase == Operational {
		m.status.Phase = AwaitingLink
		m.status.LinkPolls = 0
		m.status.GaveUp = false
		m.mu.Unlock()
		m.logger.Warn("transport disconnected, awaiting link", "error", n.Err)
		m.recorder.Record(event.New(event.LinkDown, component).WithErr(n.Err))
	} else {
		m.mu.Unlock()
	}

	if m.link.IsLinkUp() {
		m.mu.Lock()
		m.status.Phase = Operational
		m.status.Recoveries++
		polls := m.status.LinkPolls
		m.mu.Unlock()

		m.logger.Info("link up, requesting resubscribe", "polls", polls)
		m.recorder.Record(event.New(event.LinkRestored, component))
		m.requestSubscribe(ctx, "link_restored")
		return
	}

	m.mu.Lock()
	m.status.LinkPolls++
	polls := m.status.LinkPolls
	giveUp := m.cfg.MaxLinkPolls > 0 && polls >= m.cfg.MaxLinkPolls
	m.status.GaveUp = giveUp
	m.mu.Unlock()

	if giveUp {
		m.logger.Error("link still down, polling stopped", "polls", polls)
		return
	}

	delay := m.pollDelay(polls)
	m.logger.Debug("link down, polling again", "polls", polls, "delay", delay)
	m.schedulePoll(ctx, delay)
}

// pollDelay doubles LinkPollInterval per completed poll, capped at
// MaxLinkPollInterval.
func (m *Monitor) pollDelay(polls int) time.Duration {
	delay := m.cfg.LinkPollInterval
	for i := 1; i < polls && delay < m.cfg.MaxLinkPollInterval; i++ {
		delay *= 2
	}
	return min(delay, m.cfg.MaxLinkPollInterval)
}

// schedulePoll queues a Disconnected notice to this monitor after delay.
// At most one poll is outstanding; callers cancel the previous one first.
func (m *Monitor) schedulePoll(ctx context.Context, delay time.Duration) {
	pollCtx, cancel := context.WithCancel(ctx)
	m.pollCancel = cancel

	m.activePolls.Add(1)
	m.after(pollCtx, delay, func(ctx context.Context) {
		if err := m.inbox.Send(ctx, command.Notify(command.Disconnected, nil)); err != nil {
			m.logger.Debug("link poll abandoned", "error", err)
		}
	}, func() { m.activePolls.Add(-1) })
}

func (m *Monitor) cancelPoll() {
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// requestSubscribe sends Subscribe to the actuator without blocking the
// receive loop.
func (m *Monitor) requestSubscribe(ctx context.Context, reason string) {
	m.mu.Lock()
	m.status.Resubscribes++
	m.mu.Unlock()

	m.recorder.Record(event.New(event.ResubscribeRequested, component).WithDetail(reason))
	m.after(ctx, 0, func(ctx context.Context) {
		if err := m.actuator.Send(ctx, command.New(command.Subscribe)); err != nil {
			m.logger.Debug("resubscribe request abandoned", "error", err)
		}
	})
}

// after runs fn on its own goroutine once delay has elapsed, unless ctx ends
// first. Optional cleanups run when the goroutine exits.
func (m *Monitor) after(ctx context.Context, delay time.Duration, fn func(ctx context.Context), cleanups ...func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for _, c := range cleanups {
			defer c()
		}

		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
}
