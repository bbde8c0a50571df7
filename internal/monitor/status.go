package monitor

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/command"
)

// Phase is the monitor's connectivity phase.
type Phase int32

const (
	// Operational means no outage is being handled.
	Operational Phase = iota

	// AwaitingLink means a disconnect was reported and the link is being polled.
	AwaitingLink
)

// String returns "operational" or "awaiting_link".
func (p Phase) String() string {
	if p == AwaitingLink {
		return "awaiting_link"
	}
	return "operational"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "operational":
		*p = Operational
	case "awaiting_link":
		*p = AwaitingLink
	default:
		return fmt.Errorf("monitor: unknown phase %q", b)
	}
	return nil
}

// Status is a snapshot of the monitor.
//
// Phase and LastNotice together give the four observable conditions:
// operational, operational after a publish failure, operational with a
// resubscribe pending, and awaiting link.
type Status struct {
	Phase        Phase
	LastNotice   command.NoticeKind
	LastNoticeAt time.Time

	// LinkPolls counts link checks in the current (or last) outage.
	LinkPolls int

	// GaveUp is set when MaxLinkPolls was reached without the link returning.
	GaveUp bool

	Recoveries   uint64
	Resubscribes uint64
}
