// Package journal keeps the node's event history.
//
// Workers record events (button presses, publishes, subscription changes,
// link transitions) through a Writer, which queues them without blocking and
// stores them in the SQLite events table. The same events can be mirrored to
// further sinks such as InfluxDB. The HTTP API reads them back with List.
package journal
