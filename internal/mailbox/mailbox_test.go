package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_SingleSlot(t *testing.T) {
	mb := New[int]("test")

	require.NoError(t, mb.TrySend(1))
	assert.True(t, mb.Pending())

	err := mb.TrySend(2)
	require.ErrorIs(t, err, ErrFull)
	assert.Contains(t, err.Error(), "test")
	assert.Equal(t, uint64(1), mb.Dropped())

	v, err := mb.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v, "the first value must survive a rejected TrySend")
	assert.False(t, mb.Pending())
}

func TestMailbox_SendBlocksWhileFull(t *testing.T) {
	mb := New[string]("worker")
	require.NoError(t, mb.Send(context.Background(), "first"))

	accepted := make(chan error, 1)
	go func() {
		accepted <- mb.Send(context.Background(), "second")
	}()

	select {
	case <-accepted:
		t.Fatal("Send returned while the slot was still occupied")
	case <-time.After(30 * time.Millisecond):
	}

	v, err := mb.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	select {
	case err := <-accepted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked Send was not released after Receive")
	}

	v, err = mb.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestMailbox_SendCancelled(t *testing.T) {
	mb := New[int]("monitor")
	require.NoError(t, mb.TrySend(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := mb.Send(ctx, 2)
	require.ErrorIs(t, err, ErrSendCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, uint64(0), mb.Dropped(), "a cancelled Send is not a drop")
}

func TestMailbox_ReceiveCancelled(t *testing.T) {
	mb := New[int]("idle")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mb.Receive(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMailbox_ValuesAreCopied(t *testing.T) {
	type payload struct{ n int }
	mb := New[payload]("copy")

	p := payload{n: 1}
	require.NoError(t, mb.TrySend(p))
	p.n = 2

	got, err := mb.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, got.n)
}
