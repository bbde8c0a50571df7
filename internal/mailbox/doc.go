// Package mailbox provides the single-slot queues that connect the node's
// workers.
//
// Every worker owns one inbound Mailbox and is its only consumer. Producers
// running as ordinary workers use Send, which applies backpressure by blocking
// while the slot is full. Producers running in asynchronous callbacks (scan
// completion, timers, transport events) use TrySend, which never blocks and
// drops the value when the slot is full.
//
//	mb := mailbox.New[command.Command]("sensor")
//	if err := mb.TrySend(command.New(command.ProcessScan)); err != nil {
//	    logger.Warn("scan result dropped", "error", err)
//	}
package mailbox
