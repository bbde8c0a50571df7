package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommand_String(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{New(StartScan), "start_scan"},
		{New(ProcessScan), "process_scan"},
		{Publish(true), "publish_status(on)"},
		{Publish(false), "publish_status(off)"},
		{New(Subscribe), "subscribe"},
		{New(Unsubscribe), "unsubscribe"},
		{Output(true), "set_output(on)"},
		{Command{Kind: Kind(42)}, "kind(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		payload string
		wantOn  bool
		wantOk  bool
	}{
		{"on", true, true},
		{"off", false, true},
		{"ON", false, false},
		{"on\n", false, false},
		{" off", false, false},
		{"", false, false},
		{"toggle", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			on, ok := ParsePayload([]byte(tt.payload))
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantOn, on)
		})
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	for _, on := range []bool{true, false} {
		got, ok := ParsePayload([]byte(Payload(on)))
		assert.True(t, ok)
		assert.Equal(t, on, got)
	}
}

func TestNoticeKind_String(t *testing.T) {
	assert.Equal(t, "publish_failed", PublishFailed.String())
	assert.Equal(t, "subscribe_failed", SubscribeFailed.String())
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "notice(9)", NoticeKind(9).String())
}
