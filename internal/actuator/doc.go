// Package actuator implements the worker that keeps the node subscribed to
// its command topic and drives the output device.
//
// On start the output is switched off and a subscription is attempted. Each
// Subscribe command gets a small, fast retry budget; when it runs out the
// connectivity monitor is told once and takes over with slower retries.
// Inbound messages are decoded from the exact literals "on" and "off";
// anything else is rejected without touching the output.
package actuator
