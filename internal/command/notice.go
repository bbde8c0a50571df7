package command

import "fmt"

// NoticeKind identifies a failure notification sent to the connectivity monitor.
type NoticeKind int

const (
	// PublishFailed reports a failed status publish.
	PublishFailed NoticeKind = iota + 1

	// SubscribeFailed reports that the actuator exhausted its subscribe retries.
	SubscribeFailed

	// Disconnected reports loss of the transport session.
	Disconnected
)

var noticeNames = map[NoticeKind]string{
	PublishFailed:   "publish_failed",
	SubscribeFailed: "subscribe_failed",
	Disconnected:    "disconnected",
}

// String returns the snake_case name of the notice kind.
func (k NoticeKind) String() string {
	if name, ok := noticeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("notice(%d)", int(k))
}

// Notice is a tagged value placed in the monitor's mailbox. Err carries the
// cause for logging and may be nil.
type Notice struct {
	Kind NoticeKind
	Err  error
}

// Notify builds a notice.
func Notify(kind NoticeKind, err error) Notice {
	return Notice{Kind: kind, Err: err}
}
