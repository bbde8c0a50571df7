// Package auth issues and verifies bearer tokens for the node's HTTP API.
//
// Tokens are HS256-signed JWTs carrying a subject and a role. Two roles
// exist: a viewer may read status and the event journal, an operator may
// additionally drive buttons and the subscription. Verification is by
// signature and expiry only; there is no session store.
package auth
