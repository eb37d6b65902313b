// Package swlink abstracts the reliable, reconnecting message channel
// to the switch. Framing, version negotiation, and reconnect policy
// live here; the engine in package ofctrl only ever sees the small
// capability surface below (spec.md §9, "polymorphism over capability
// set"). A mock implementing SwitchLink is sufficient to drive the
// engine's entire test suite.
package swlink

import "github.com/netrack/ofctrl/ofmsg"

// SwitchLink is the capability set the flow synchronization engine
// needs from its transport: connect/disconnect to a target, send a
// message (FIFO, counted as in-flight until flushed), poll for
// received messages, and observe reconnects via a monotonic sequence
// number.
type SwitchLink interface {
	// Connect dials target if it differs from the link's current
	// target, or is a no-op if already connected to it. Connection
	// happens in the background; Connected reports the outcome.
	Connect(target string)

	// Disconnect tears down any active connection. The link's target
	// is cleared, so a later Connect reconnects from scratch.
	Disconnect()

	// Connected reports whether the link currently has a live
	// connection.
	Connected() bool

	// Target returns the link's current connection target, or "" after
	// Disconnect. A connection that drops keeps its target.
	Target() string

	// Send encodes and queues an outbound message, returning the xid
	// it was assigned. Increments the in-flight counter; the counter
	// is decremented once the message has been handed off to the
	// transport.
	Send(typ ofmsg.Type, body []byte) (xid uint32, err error)

	// Reply encodes and queues an outbound message under a
	// caller-supplied xid instead of allocating a new one, for
	// responses that must mirror the xid of the message they answer
	// (OpenFlow echo reply). Otherwise behaves like Send.
	Reply(xid uint32, typ ofmsg.Type, body []byte) error

	// Recv returns the next received message, if any, without
	// blocking.
	Recv() (*ofmsg.Message, bool)

	// InFlight returns the number of messages sent but not yet
	// drained from the outgoing buffer.
	InFlight() int

	// Seqno returns a counter that changes every time the underlying
	// connection is replaced (dial, or redial after a drop). The
	// engine compares this against its last-seen value to detect
	// reconnects (spec.md §4.1).
	Seqno() uint64

	// Wait returns a channel that becomes readable when the link has
	// work for the owning event loop: a new or dropped connection, or
	// inbound data.
	Wait() <-chan struct{}

	// Close tears down the link permanently.
	Close() error
}
