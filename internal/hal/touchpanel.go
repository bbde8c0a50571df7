package hal

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultScanDuration is how long a simulated scan takes when none is configured.
const DefaultScanDuration = 2 * time.Millisecond

// TouchPanel simulates a capacitive touch controller.
//
// Buttons are pressed and released from outside (the HTTP API). A scan
// latches the pressed state after the scan duration, clears the busy flag
// and then invokes the completion callback on the timer goroutine.
type TouchPanel struct {
	duration time.Duration
	busy     atomic.Bool

	mu       sync.Mutex
	pressed  []bool
	latched  []bool
	timer    *time.Timer
	onDone   func()
	scans    uint64
	shutdown bool
}

// NewTouchPanel creates a panel with the given number of channels.
func NewTouchPanel(channels int, scanDuration time.Duration) (*TouchPanel, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if scanDuration <= 0 {
		scanDuration = DefaultScanDuration
	}
	return &TouchPanel{
		duration: scanDuration,
		pressed:  make([]bool, channels),
		latched:  make([]bool, channels),
	}, nil
}

// SetOnScanComplete registers the completion callback. It must not block.
func (p *TouchPanel) SetOnScanComplete(fn func()) {
	p.mu.Lock()
	p.onDone = fn
	p.mu.Unlock()
}

// StartScan begins a scan. It returns ErrScanBusy while one is running.
func (p *TouchPanel) StartScan() error {
	if !p.busy.CompareAndSwap(false, true) {
		return ErrScanBusy
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		p.busy.Store(false)
		return ErrClosed
	}
	p.timer = time.AfterFunc(p.duration, p.complete)
	return nil
}

func (p *TouchPanel) complete() {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return
	}
	copy(p.latched, p.pressed)
	p.scans++
	cb := p.onDone
	p.mu.Unlock()

	// The panel stays busy until the result is handed off, so a tick cannot
	// queue a new scan ahead of it.
	if cb != nil {
		cb()
	}
	p.busy.Store(false)
}

// IsBusy reports whether a scan is running.
func (p *TouchPanel) IsBusy() bool {
	return p.busy.Load()
}

// IsActive reports the state of a channel as latched by the last completed scan.
func (p *TouchPanel) IsActive(channel int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if channel < 0 || channel >= len(p.latched) {
		return false
	}
	return p.latched[channel]
}

// Press marks a channel as touched. It is seen by the next completed scan.
func (p *TouchPanel) Press(channel int) error {
	return p.set(channel, true)
}

// Release marks a channel as no longer touched.
func (p *TouchPanel) Release(channel int) error {
	return p.set(channel, false)
}

func (p *TouchPanel) set(channel int, touched bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if channel < 0 || channel >= len(p.pressed) {
		return fmt.Errorf("%w: %d", ErrUnknownChannel, channel)
	}
	p.pressed[channel] = touched
	return nil
}

// Pressed reports whether a channel is currently touched (not yet necessarily scanned).
func (p *TouchPanel) Pressed(channel int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if channel < 0 || channel >= len(p.pressed) {
		return false
	}
	return p.pressed[channel]
}

// Channels returns the number of channels.
func (p *TouchPanel) Channels() int {
	return len(p.pressed)
}

// Scans returns how many scans have completed.
func (p *TouchPanel) Scans() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scans
}

// Close stops a pending scan. No callback fires after Close returns.
func (p *TouchPanel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	if p.timer != nil {
		p.timer.Stop()
	}
}
