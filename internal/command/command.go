package command

import "fmt"

// Kind identifies a worker command.
type Kind int

// Worker commands. Only PublishStatus and SetOutput use the On field.
const (
	// StartScan asks the Sensor Worker to start a touch scan.
	StartScan Kind = iota + 1

	// ProcessScan asks the Sensor Worker to read the completed scan.
	ProcessScan

	// PublishStatus asks the Publish Worker to publish "on" or "off".
	PublishStatus

	// Subscribe asks the Actuator Worker to (re)establish its subscription.
	Subscribe

	// Unsubscribe asks the Actuator Worker to drop its subscription.
	Unsubscribe

	// SetOutput asks the Actuator Worker to drive the output device.
	SetOutput
)

var kindNames = map[Kind]string{
	StartScan:     "start_scan",
	ProcessScan:   "process_scan",
	PublishStatus: "publish_status",
	Subscribe:     "subscribe",
	Unsubscribe:   "unsubscribe",
	SetOutput:     "set_output",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is a tagged value placed in a worker mailbox.
type Command struct {
	Kind Kind
	On   bool
}

// New returns a command without a value.
func New(kind Kind) Command {
	return Command{Kind: kind}
}

// Publish returns a PublishStatus command.
func Publish(on bool) Command {
	return Command{Kind: PublishStatus, On: on}
}

// Output returns a SetOutput command.
func Output(on bool) Command {
	return Command{Kind: SetOutput, On: on}
}

// String formats the command for logs, e.g. "set_output(on)".
func (c Command) String() string {
	switch c.Kind {
	case PublishStatus, SetOutput:
		return fmt.Sprintf("%s(%s)", c.Kind, Payload(c.On))
	default:
		return c.Kind.String()
	}
}

// Status payload literals.
const (
	PayloadOn  = "on"
	PayloadOff = "off"
)

// Payload returns the wire literal for a boolean status.
func Payload(on bool) string {
	if on {
		return PayloadOn
	}
	return PayloadOff
}

// ParsePayload decodes a wire literal. Only the exact literals are accepted.
func ParsePayload(payload []byte) (on bool, ok bool) {
	switch string(payload) {
	case PayloadOn:
		return true, true
	case PayloadOff:
		return false, true
	default:
		return false, false
	}
}
