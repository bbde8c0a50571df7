// Package sensor implements the touch sensing and status publishing path.
//
// The Sensor Worker owns a periodic timer. Each tick requests a scan when the
// driver is idle; the driver's completion callback queues ProcessScan. When a
// button goes from inactive to active the worker hands a PublishStatus
// command to the Publish Worker, which publishes "on" or "off" to a fixed
// topic (retain=false) and reports any failure to the connectivity monitor.
//
// Timer and completion callbacks never block: they use mailbox.TrySend.
// Worker-to-worker handoffs use the blocking mailbox.Send.
package sensor
