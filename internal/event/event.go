package event

import "time"

// Kind classifies a recorded node event.
type Kind string

// Event kinds recorded by the workers.
const (
	ButtonPressed        Kind = "button_pressed"
	StatusPublished      Kind = "status_published"
	PublishFailed        Kind = "publish_failed"
	Subscribed           Kind = "subscribed"
	SubscribeFailed      Kind = "subscribe_failed"
	Unsubscribed         Kind = "unsubscribed"
	OutputSet            Kind = "output_set"
	MalformedMessage     Kind = "malformed_message"
	LinkDown             Kind = "link_down"
	LinkRestored         Kind = "link_restored"
	ResubscribeRequested Kind = "resubscribe_requested"
	CommandDropped       Kind = "command_dropped"
)

// Event is one entry in the node's event journal.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	NodeID    string    `json:"node_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Component string    `json:"component"`
	Topic     string    `json:"topic,omitempty"`
	Value     *bool     `json:"value,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Time      time.Time `json:"time"`
}

// Recorder accepts events. Implementations must not block the caller for long;
// workers record from their own goroutines.
type Recorder interface {
	Record(e Event)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(e Event)

// Record calls f(e).
func (f RecorderFunc) Record(e Event) { f(e) }

// Discard is a Recorder that drops every event.
var Discard Recorder = RecorderFunc(func(Event) {})

// Bool returns a pointer to b for Event.Value.
func Bool(b bool) *bool { return &b }

// New stamps an event with the current time.
func New(kind Kind, component string) Event {
	return Event{Kind: kind, Component: component, Time: time.Now().UTC()}
}

// WithValue returns a copy of e carrying value.
func (e Event) WithValue(on bool) Event {
	e.Value = Bool(on)
	return e
}

// WithTopic returns a copy of e carrying topic.
func (e Event) WithTopic(topic string) Event {
	e.Topic = topic
	return e
}

// WithErr returns a copy of e whose detail is err's message.
func (e Event) WithErr(err error) Event {
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// WithDetail returns a copy of e carrying detail.
func (e Event) WithDetail(detail string) Event {
	e.Detail = detail
	return e
}
