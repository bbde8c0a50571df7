// Package link reports whether the node's network link is usable.
//
// The connectivity monitor polls IsLinkUp after the transport reports a
// disconnect, and only asks for a resubscription once the link is back.
// Three strategies are available:
//
//   - dial: a TCP connection to the broker succeeds within the timeout
//   - interface: a named network interface is up and has an address
//   - mqtt: the transport's own session state
package link
