// Package monitor implements the connectivity monitor.
//
// The monitor is the slow, unbounded retry tier above the actuator's fast
// subscribe retries:
//
//   - PublishFailed is logged only.
//   - SubscribeFailed schedules a Subscribe to the actuator after a fixed delay.
//   - Disconnected moves the monitor to AwaitingLink. If the link is up the
//     actuator is asked to resubscribe and the monitor returns to Operational;
//     otherwise the monitor queues another Disconnected to itself after the
//     poll delay and checks again.
//
// Polling is a message to self rather than a sleeping loop, so other notices
// are still handled during an outage.
package monitor
