package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-touchnode/internal/event"
)

// Measurement names written by the node.
const (
	MeasurementEvents = "touchnode_events"
	MeasurementHealth = "touchnode_health"
)

// Record writes e as a point, satisfying event.Recorder.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Events are dropped silently while the client is disconnected.
func (c *Client) Record(e event.Event) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(EventPoint(e))
}

// EventPoint converts an event to a point.
//
// Tags: node_id, kind, component, topic (when set). Fields: count=1 always,
// value (when the event carries one) and detail (when set).
func EventPoint(e event.Event) *write.Point {
	tags := map[string]string{
		"node_id":   e.NodeID,
		"kind":      string(e.Kind),
		"component": e.Component,
	}
	if e.Topic != "" {
		tags["topic"] = e.Topic
	}

	fields := map[string]interface{}{
		"count": 1,
	}
	if e.Value != nil {
		fields["value"] = *e.Value
	}
	if e.Detail != "" {
		fields["detail"] = e.Detail
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(MeasurementEvents, tags, fields, ts)
}

// WriteHealth writes a node health sample.
//
// Parameters:
//   - nodeID: Node identifier (tag)
//   - fields: Health values, e.g. {"connected": true, "link_polls": 3}
func (c *Client) WriteHealth(nodeID string, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		MeasurementHealth,
		map[string]string{"node_id": nodeID},
		fields,
		time.Now(),
	)
	c.writeAPI.WritePoint(point)
}
