package node

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-touchnode/internal/actuator"
	"github.com/nerrad567/gray-logic-touchnode/internal/command"
	"github.com/nerrad567/gray-logic-touchnode/internal/event"
	"github.com/nerrad567/gray-logic-touchnode/internal/hal"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-touchnode/internal/monitor"
)

const wait = 2 * time.Second

type published struct {
	topic    string
	payload  string
	retained bool
}

// fakeTransport records publishes and subscriptions and lets tests deliver
// messages and connection events.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	publishes    []published
	handlers     map[string]func(string, []byte) error
	subscribes   int
	unsubscribes int
	subscribeErr error
	publishErr   error
	onConnect    func()
	onDisconnect func(error)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{connected: true, handlers: map[string]func(string, []byte) error{}}
}

func (f *fakeTransport) Publish(topic string, payload []byte, _ byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.publishes = append(f.publishes, published{topic, string(payload), retained})
	return nil
}

func (f *fakeTransport) Subscribe(topic string, _ byte, handler func(string, []byte) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribes++
	delete(f.handlers, topic)
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) SetOnConnect(cb func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onConnect = cb
}

func (f *fakeTransport) SetOnDisconnect(cb func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDisconnect = cb
}

// deliver invokes the handler for topic as the transport would.
func (f *fakeTransport) deliver(topic, payload string) error {
	f.mu.Lock()
	h := f.handlers[topic]
	f.mu.Unlock()
	if h == nil {
		return errors.New("no subscription")
	}
	return h(topic, []byte(payload))
}

func (f *fakeTransport) dropConnection(err error) {
	f.mu.Lock()
	f.connected = false
	clear(f.handlers)
	cb := f.onDisconnect
	f.mu.Unlock()
	cb(err)
}

func (f *fakeTransport) restoreConnection() {
	f.mu.Lock()
	f.connected = true
	cb := f.onConnect
	f.mu.Unlock()
	cb()
}

func (f *fakeTransport) statusPublishes(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.publishes {
		if p.topic == topic {
			out = append(out, p.payload)
		}
	}
	return out
}

func (f *fakeTransport) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

func (f *fakeTransport) setSubscribeErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeErr = err
}

type fakeLink struct{ up atomic.Bool }

func (l *fakeLink) IsLinkUp() bool { return l.up.Load() }

type eventSpy struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *eventSpy) Record(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *eventSpy) has(kind event.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

type harness struct {
	node      *Node
	transport *fakeTransport
	link      *fakeLink
	panel     *hal.TouchPanel
	output    *hal.MemoryOutput
	events    *eventSpy
	cancel    context.CancelFunc
	done      chan error
}

func testNodeConfig() *config.Config {
	cfg := config.Default()
	cfg.Node.ID = "panel-test"
	cfg.Node.HealthInterval = 0
	cfg.Sensor.ScanInterval = 2 * time.Millisecond
	cfg.Sensor.ScanDuration = time.Millisecond
	cfg.Actuator.MaxSubscribeRetries = 2
	cfg.Actuator.SubscribeRetryInterval = time.Millisecond
	cfg.Monitor.ResubscribeDelay = 5 * time.Millisecond
	cfg.Monitor.LinkPollInterval = 5 * time.Millisecond
	cfg.Monitor.MaxLinkPollInterval = 5 * time.Millisecond
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()

	h := &harness{
		transport: newFakeTransport(),
		link:      &fakeLink{},
		output:    &hal.MemoryOutput{},
		events:    &eventSpy{},
	}
	h.link.up.Store(true)

	panel, err := hal.NewTouchPanel(2, cfg.Sensor.ScanDuration)
	require.NoError(t, err)
	h.panel = panel
	t.Cleanup(panel.Close)

	h.node, err = New(cfg, Deps{
		Transport: h.transport,
		Link:      h.link,
		Panel:     panel,
		Output:    h.output,
		Sinks:     []event.Recorder{h.events},
	})
	require.NoError(t, err)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.node.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-h.done:
			assert.NoError(t, err)
		case <-time.After(wait):
			t.Error("node did not stop")
		}
	})
}

func (h *harness) waitSubscribed(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.node.Actuator().State() == actuator.Subscribed
	}, wait, time.Millisecond, "subscription")
}

// tap presses a button until the edge has been published, then releases it
// and waits for a scan to see the release.
func (h *harness) tap(t *testing.T, button int) {
	t.Helper()
	edges := h.node.Status().Sensor.Edges
	require.NoError(t, h.node.Press(button))
	require.Eventually(t, func() bool { return h.node.Status().Sensor.Edges > edges }, wait, time.Millisecond)
	require.NoError(t, h.node.Release(button))

	scans := h.node.Status().Sensor.Scans
	require.Eventually(t, func() bool { return h.node.Status().Sensor.Scans > scans+1 }, wait, time.Millisecond)
}

func TestNew_Validation(t *testing.T) {
	cfg := testNodeConfig()
	panel, err := hal.NewTouchPanel(2, time.Millisecond)
	require.NoError(t, err)
	full := Deps{Transport: newFakeTransport(), Link: &fakeLink{}, Panel: panel, Output: &hal.MemoryOutput{}}

	tests := []struct {
		name    string
		cfg     *config.Config
		mutate  func(d *Deps)
		wantErr error
	}{
		{"nil config", nil, func(*Deps) {}, ErrNoConfig},
		{"no transport", cfg, func(d *Deps) { d.Transport = nil }, ErrNoTransport},
		{"no link", cfg, func(d *Deps) { d.Link = nil }, ErrNoLink},
		{"no panel", cfg, func(d *Deps) { d.Panel = nil }, ErrNoPanel},
		{"no output", cfg, func(d *Deps) { d.Output = nil }, ErrNoOutput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := full
			tt.mutate(&d)
			_, err := New(tt.cfg, d)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_InvalidButtonMapping(t *testing.T) {
	cfg := testNodeConfig()
	cfg.Sensor.Buttons[0].Publishes = "ON"

	panel, err := hal.NewTouchPanel(2, time.Millisecond)
	require.NoError(t, err)
	_, err = New(cfg, Deps{Transport: newFakeTransport(), Link: &fakeLink{}, Panel: panel, Output: &hal.MemoryOutput{}})
	assert.ErrorIs(t, err, ErrInvalidButton)
}

func TestNode_ButtonPressPublishesStatus(t *testing.T) {
	cfg := testNodeConfig()
	h := newHarness(t, cfg)
	h.start(t)
	h.waitSubscribed(t)

	h.tap(t, 1)
	require.Eventually(t, func() bool {
		return len(h.transport.statusPublishes(cfg.Sensor.PublishTopic)) == 1
	}, wait, time.Millisecond)

	h.tap(t, 0)
	require.Eventually(t, func() bool {
		return len(h.transport.statusPublishes(cfg.Sensor.PublishTopic)) == 2
	}, wait, time.Millisecond)

	assert.Equal(t, []string{"on", "off"}, h.transport.statusPublishes(cfg.Sensor.PublishTopic))
	assert.True(t, h.events.has(event.ButtonPressed))
	assert.True(t, h.events.has(event.StatusPublished))
}

func TestNode_HeldButtonPublishesOnce(t *testing.T) {
	cfg := testNodeConfig()
	h := newHarness(t, cfg)
	h.start(t)
	h.waitSubscribed(t)

	require.NoError(t, h.node.Press(1))
	require.Eventually(t, func() bool {
		return len(h.transport.statusPublishes(cfg.Sensor.PublishTopic)) == 1
	}, wait, time.Millisecond)

	// Many more scans while held.
	scans := h.panel.Scans()
	require.Eventually(t, func() bool { return h.panel.Scans() > scans+10 }, wait, time.Millisecond)
	assert.Len(t, h.transport.statusPublishes(cfg.Sensor.PublishTopic), 1)
}

func TestNode_InboundCommandDrivesOutput(t *testing.T) {
	cfg := testNodeConfig()
	h := newHarness(t, cfg)
	h.start(t)
	h.waitSubscribed(t)

	require.NoError(t, h.transport.deliver(cfg.Actuator.SubscribeTopic, "on"))
	require.Eventually(t, h.output.State, wait, time.Millisecond)

	require.NoError(t, h.transport.deliver(cfg.Actuator.SubscribeTopic, "off"))
	require.Eventually(t, func() bool { return !h.output.State() }, wait, time.Millisecond)

	err := h.transport.deliver(cfg.Actuator.SubscribeTopic, "maybe")
	assert.ErrorIs(t, err, actuator.ErrMalformedMessage)
	assert.Equal(t, uint64(1), h.node.Status().Actuator.Malformed)
}

func TestNode_DisconnectResubscribesWhenLinkReturns(t *testing.T) {
	cfg := testNodeConfig()
	h := newHarness(t, cfg)
	h.start(t)
	h.waitSubscribed(t)
	before := h.transport.subscribeCount()

	h.link.up.Store(false)
	h.transport.dropConnection(errors.New("keepalive timeout"))

	require.Eventually(t, func() bool {
		return h.node.Monitor().Status().Phase == monitor.AwaitingLink
	}, wait, time.Millisecond)
	assert.False(t, h.node.Status().Connected)

	h.link.up.Store(true)
	h.transport.restoreConnection()

	require.Eventually(t, func() bool {
		return h.node.Monitor().Status().Phase == monitor.Operational &&
			h.transport.subscribeCount() > before &&
			h.node.Actuator().State() == actuator.Subscribed
	}, wait, time.Millisecond)

	// Commands flow again on the new subscription.
	require.NoError(t, h.transport.deliver(cfg.Actuator.SubscribeTopic, "on"))
	require.Eventually(t, h.output.State, wait, time.Millisecond)

	status := h.node.Status()
	assert.EqualValues(t, 1, status.Transport.ConnectionsLost)
	assert.EqualValues(t, 1, status.Transport.Reconnects)
	assert.GreaterOrEqual(t, status.Monitor.Recoveries, uint64(1))
	assert.True(t, h.events.has(event.LinkDown))
	assert.True(t, h.events.has(event.LinkRestored))
}

func TestNode_SubscribeFailureIsRetriedByMonitor(t *testing.T) {
	cfg := testNodeConfig()
	h := newHarness(t, cfg)
	h.transport.setSubscribeErr(errors.New("broker refused"))
	h.start(t)

	// First budget exhausted, monitor schedules another Subscribe.
	require.Eventually(t, func() bool {
		return h.transport.subscribeCount() > cfg.Actuator.MaxSubscribeRetries
	}, wait, time.Millisecond)
	assert.True(t, h.events.has(event.SubscribeFailed))

	h.transport.setSubscribeErr(nil)
	require.Eventually(t, func() bool {
		return h.node.Actuator().State() == actuator.Subscribed
	}, wait, time.Millisecond)
}

func TestNode_UnsubscribeAndSubscribe(t *testing.T) {
	h := newHarness(t, testNodeConfig())
	h.start(t)
	h.waitSubscribed(t)

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	require.NoError(t, h.node.Unsubscribe(ctx))
	require.Eventually(t, func() bool {
		return h.node.Actuator().State() == actuator.Unsubscribed
	}, wait, time.Millisecond)

	require.NoError(t, h.node.Subscribe(ctx))
	require.Eventually(t, func() bool {
		return h.node.Actuator().State() == actuator.Subscribed
	}, wait, time.Millisecond)
}

func TestNode_PressUnknownButton(t *testing.T) {
	h := newHarness(t, testNodeConfig())

	assert.ErrorIs(t, h.node.Press(9), ErrUnknownButton)
	assert.ErrorIs(t, h.node.Release(9), ErrUnknownButton)
}

func TestNode_StatusBeforeRun(t *testing.T) {
	h := newHarness(t, testNodeConfig())

	s := h.node.Status()
	assert.Equal(t, "panel-test", s.NodeID)
	assert.Equal(t, monitor.Operational, s.Monitor.Phase)
	assert.Equal(t, actuator.Unsubscribed.String(), s.Actuator.State)
	assert.Empty(t, s.Monitor.LastNotice)
	assert.Nil(t, s.Monitor.LastNoticeAt)
}

func TestNode_DisconnectBeforeRunIsNotLost(t *testing.T) {
	h := newHarness(t, testNodeConfig())

	// Slot empty: the notice waits in the monitor's mailbox.
	h.transport.dropConnection(errors.New("early"))
	assert.True(t, h.node.Monitor().Inbox().Pending())
}

func TestNode_DisconnectDuringShutdown(t *testing.T) {
	h := newHarness(t, testNodeConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.node.Run(ctx) }()
	h.waitSubscribed(t)

	var flaps sync.WaitGroup
	flaps.Add(1)
	go func() {
		defer flaps.Done()
		for range 200 {
			h.node.onTransportLost(errors.New("flap"))
		}
	}()
	cancel()
	flaps.Wait()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(wait):
		t.Fatal("node did not stop")
	}

	// After Run returns a full slot must not start a delivery goroutine.
	_ = h.node.Monitor().Inbox().TrySend(command.Notify(command.Disconnected, nil))
	h.node.onTransportLost(errors.New("late"))

	h.node.deliverMu.Lock()
	stopping := h.node.stopping
	h.node.deliverMu.Unlock()
	assert.True(t, stopping)

	waited := make(chan struct{})
	go func() {
		h.node.deliverWG.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(wait):
		t.Fatal("disconnect delivery still pending after shutdown")
	}
}
