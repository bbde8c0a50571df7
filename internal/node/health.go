package node

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-touchnode/internal/actuator"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-touchnode/internal/monitor"
)

// HealthStatus represents the operational status of the node.
type HealthStatus string

const (
	// HealthHealthy: transport connected, link operational, command topic subscribed.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded: running, but at least one of the above does not hold.
	HealthDegraded HealthStatus = "degraded"

	// HealthStarting is published once before the first periodic report.
	HealthStarting HealthStatus = "starting"

	// HealthStopping is published on shutdown.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is the retained payload on touchnode/{node_id}/health.
type HealthMessage struct {
	Node          string       `json:"node"`
	Name          string       `json:"name,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Phase         string       `json:"phase"`
	Subscription  string       `json:"subscription"`
	LinkPolls     int          `json:"link_polls"`
	Recoveries    uint64       `json:"recoveries"`
}

// HealthPublisher sends health messages. Implemented by the transport.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthSink receives health samples as fields (the InfluxDB client).
type HealthSink interface {
	WriteHealth(nodeID string, fields map[string]interface{})
}

// HealthReporter publishes the node's health at a fixed interval.
type HealthReporter struct {
	nodeID    string
	name      string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	status    func() Status
	sink      HealthSink

	logger   *logging.Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a reporter. status supplies the snapshot each
// report is built from; sink may be nil.
func NewHealthReporter(nodeID, name, version string, interval time.Duration, publisher HealthPublisher, status func() Status, sink HealthSink) *HealthReporter {
	return &HealthReporter{
		nodeID:    nodeID,
		name:      name,
		version:   version,
		startTime: time.Now(),
		interval:  interval,
		publisher: publisher,
		status:    status,
		sink:      sink,
	}
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger *logging.Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// Run publishes "starting", then a report every interval until ctx is
// cancelled, then a best-effort "stopping". A non-positive interval
// disables reporting.
func (h *HealthReporter) Run(ctx context.Context) error {
	if h.interval <= 0 {
		return nil
	}

	if err := h.publish(h.build(HealthStarting, "node starting")); err != nil {
		h.logError("failed to publish starting health", err)
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			//nolint:errcheck // Best-effort during shutdown
			h.publish(h.build(HealthStopping, ""))
			return nil
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// PublishNow publishes the current health immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	msg := h.build(status, reason)
	h.writeSample(msg)
	return h.publish(msg)
}

// determineStatus evaluates the node's current health.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "transport disconnected"
	}

	s := h.status()
	if s.Monitor.Phase != monitor.Operational {
		return HealthDegraded, "awaiting link"
	}
	if s.Actuator.State != actuator.Subscribed.String() {
		return HealthDegraded, "command topic not subscribed"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) build(status HealthStatus, reason string) HealthMessage {
	s := h.status()
	return HealthMessage{
		Node:          h.nodeID,
		Name:          h.name,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Reason:        reason,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Phase:         s.Monitor.Phase.String(),
		Subscription:  s.Actuator.State,
		LinkPolls:     s.Monitor.LinkPolls,
		Recoveries:    s.Monitor.Recoveries,
	}
}

func (h *HealthReporter) publish(msg HealthMessage) error {
	if h.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return h.publisher.Publish(mqtt.Topics{}.NodeHealth(h.nodeID), payload, 1, true)
}

func (h *HealthReporter) writeSample(msg HealthMessage) {
	if h.sink == nil {
		return
	}
	h.sink.WriteHealth(h.nodeID, map[string]interface{}{
		"healthy":        msg.Status == HealthHealthy,
		"uptime_seconds": msg.UptimeSeconds,
		"link_polls":     msg.LinkPolls,
		"recoveries":     int64(msg.Recoveries), //nolint:gosec // counter fits
	})
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
