package mailbox

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Mailbox is a single-slot queue owned by exactly one consuming worker.
//
// At most one value is pending at any time. Send blocks while the slot is
// occupied; TrySend never blocks and reports whether the value was accepted.
// Values are copied into the slot, so senders may reuse their variable.
type Mailbox[T any] struct {
	name    string
	slot    chan T
	dropped atomic.Uint64
}

// New creates an empty mailbox. The name appears in errors and logs.
func New[T any](name string) *Mailbox[T] {
	return &Mailbox[T]{
		name: name,
		slot: make(chan T, 1),
	}
}

// Name returns the mailbox name.
func (m *Mailbox[T]) Name() string {
	return m.name
}

// Send places v in the slot, blocking until the slot is free or ctx is done.
func (m *Mailbox[T]) Send(ctx context.Context, v T) error {
	select {
	case m.slot <- v:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrSendCancelled, m.name, ctx.Err())
	}
}

// TrySend places v in the slot only if it is free. It never blocks and is
// safe to call from driver and transport callbacks. A rejected value is
// counted in Dropped and ErrFull is returned.
func (m *Mailbox[T]) TrySend(v T) error {
	select {
	case m.slot <- v:
		return nil
	default:
		m.dropped.Add(1)
		return fmt.Errorf("%w: %s", ErrFull, m.name)
	}
}

// Receive blocks until a value is available or ctx is done.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v := <-m.slot:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Pending reports whether a value is waiting in the slot.
func (m *Mailbox[T]) Pending() bool {
	return len(m.slot) == 1
}

// Dropped returns how many TrySend calls found the slot occupied.
func (m *Mailbox[T]) Dropped() uint64 {
	return m.dropped.Load()
}
