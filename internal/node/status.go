package node

import (
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/monitor"
)

// Status is a point-in-time snapshot of the node, served by the API.
type Status struct {
	NodeID        string         `json:"node_id"`
	Name          string         `json:"name,omitempty"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Connected     bool           `json:"connected"`
	Monitor       MonitorStatus  `json:"monitor"`
	Actuator      ActuatorStatus `json:"actuator"`
	Sensor        SensorStatus   `json:"sensor"`
	Transport     TransportStats `json:"transport"`
	Journal       JournalStats   `json:"journal"`
}

// MonitorStatus mirrors monitor.Status.
type MonitorStatus struct {
	Phase        monitor.Phase `json:"phase"`
	LastNotice   string        `json:"last_notice,omitempty"`
	LastNoticeAt *time.Time    `json:"last_notice_at,omitempty"`
	LinkPolls    int           `json:"link_polls"`
	GaveUp       bool          `json:"gave_up"`
	Recoveries   uint64        `json:"recoveries"`
	Resubscribes uint64        `json:"resubscribes"`
}

// ActuatorStatus describes the subscription and output.
type ActuatorStatus struct {
	Topic     string `json:"topic"`
	State     string `json:"state"`
	OutputOn  bool   `json:"output_on"`
	Malformed uint64 `json:"malformed"`
}

// SensorStatus counts scans and publishes.
type SensorStatus struct {
	PublishTopic  string `json:"publish_topic"`
	Scans         uint64 `json:"scans"`
	Edges         uint64 `json:"edges"`
	Published     uint64 `json:"published"`
	PublishFailed uint64 `json:"publish_failed"`
	ScanDropped   uint64 `json:"scan_results_dropped"`
}

// TransportStats counts transport callbacks.
type TransportStats struct {
	ConnectionsLost uint64 `json:"connections_lost"`
	Reconnects      uint64 `json:"reconnects"`
}

// JournalStats counts events the journal could not keep.
type JournalStats struct {
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

// Status returns the current snapshot.
func (n *Node) Status() Status {
	ms := n.monitor.Status()
	mon := MonitorStatus{
		Phase:        ms.Phase,
		LinkPolls:    ms.LinkPolls,
		GaveUp:       ms.GaveUp,
		Recoveries:   ms.Recoveries,
		Resubscribes: ms.Resubscribes,
	}
	if ms.LastNotice != 0 {
		mon.LastNotice = ms.LastNotice.String()
		at := ms.LastNoticeAt
		mon.LastNoticeAt = &at
	}

	return Status{
		NodeID:        n.cfg.Node.ID,
		Name:          n.cfg.Node.Name,
		UptimeSeconds: int64(time.Since(n.startTime).Seconds()),
		Connected:     n.transport.IsConnected(),
		Monitor:       mon,
		Actuator: ActuatorStatus{
			Topic:     n.actuator.Topic(),
			State:     n.actuator.State().String(),
			OutputOn:  n.actuator.OutputOn(),
			Malformed: n.actuator.Malformed(),
		},
		Sensor: SensorStatus{
			PublishTopic:  n.cfg.Sensor.PublishTopic,
			Scans:         n.sensor.Scans(),
			Edges:         n.sensor.Edges(),
			Published:     n.publisher.Published(),
			PublishFailed: n.publisher.Failed(),
			ScanDropped:   n.sensor.Inbox().Dropped(),
		},
		Transport: TransportStats{
			ConnectionsLost: n.lost.Load(),
			Reconnects:      n.reconnect.Load(),
		},
		Journal: JournalStats{
			Dropped: n.writer.Dropped(),
			Failed:  n.writer.Failed(),
		},
	}
}
