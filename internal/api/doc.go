// Package api implements the touch node's local HTTP API and live event stream.
//
// This package provides:
//   - Read endpoints for health, node status and the event journal
//   - Control endpoints to press and release buttons and toggle the inbound subscription
//   - A WebSocket hub that fans recorded events out to connected clients
//   - Bearer-token authorisation when a JWT secret is configured
//
// # Architecture
//
// Control requests never touch the MQTT client directly. Button presses go
// through the touch panel, and subscription changes are queued on the
// actuator worker's mailbox, exactly as they would be from the hardware side.
//
// # Security
//
// With api.auth.jwt_secret unset every route is open, which suits a bench
// setup. With a secret set, read routes need a viewer token and control
// routes need an operator token. Browsers cannot set headers on a WebSocket
// handshake, so the stream accepts the token as a query parameter instead.
package api
