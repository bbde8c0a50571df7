// Package command defines the values exchanged between the node's workers:
// Command for worker mailboxes and Notice for the connectivity monitor.
// Both are small value types copied into mailbox slots.
package command
