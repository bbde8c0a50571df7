// Package node assembles a touch node: the sensor, publish, actuator and
// connectivity monitor workers, the single-slot mailboxes between them, the
// event journal and the health reporter.
//
// The transport's connection-lost callback becomes a Disconnected notice to
// the monitor, which waits for the link and then asks the actuator to
// subscribe again. Inbound messages on the command topic drive the output.
package node
