// Package ofctrltest provides a mock SwitchLink sufficient to drive
// the flow synchronization engine's entire scenario test suite,
// grounded on the teacher's own ofptest mock-switch harness
// (ofp/ofptest/switch.go).
package ofctrltest

import (
	"sync"

	"github.com/netrack/ofctrl/ofmsg"
)

// Sent is a single message the engine handed to the mock link.
type Sent struct {
	Type ofmsg.Type
	XID  uint32
	Body []byte
}

// MockLink is an in-memory swlink.SwitchLink: Send appends to Trace,
// tests script replies by pushing onto Inbox, and Stall/Unstall
// exercises backpressure (spec.md scenario S8).
type MockLink struct {
	mu sync.Mutex

	connected bool
	target    string
	seqno     uint64
	nextXID   uint32

	inbox []*ofmsg.Message
	trace []Sent

	stalled  bool
	inFlight int

	wake chan struct{}
}

// NewMockLink creates a disconnected mock link.
func NewMockLink() *MockLink {
	return &MockLink{wake: make(chan struct{}, 1)}
}

func (l *MockLink) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Connect implements swlink.SwitchLink: it connects immediately and
// bumps the sequence number, simulating a cooperative switch.
func (l *MockLink) Connect(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connected && l.target == target {
		return
	}

	l.connected = true
	l.target = target
	l.seqno++
	l.notify()
}

// Disconnect implements swlink.SwitchLink.
func (l *MockLink) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	l.target = ""
}

// Connected implements swlink.SwitchLink.
func (l *MockLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

// Target implements swlink.SwitchLink.
func (l *MockLink) Target() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

// Seqno implements swlink.SwitchLink.
func (l *MockLink) Seqno() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seqno
}

// Reconnect simulates a switch-side drop and reconnect, for testing
// the engine's reconnect-detection path (spec.md §4.1).
func (l *MockLink) Reconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seqno++
	l.notify()
}

// Stall keeps every later Send counted as in flight (it is still
// recorded in Trace), so Put observes backpressure (spec.md scenario
// S8).
func (l *MockLink) Stall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stalled = true
}

// Unstall releases a prior Stall.
func (l *MockLink) Unstall() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stalled = false
	l.inFlight = 0
}

// Send implements swlink.SwitchLink.
func (l *MockLink) Send(typ ofmsg.Type, body []byte) (uint32, error) {
	l.mu.Lock()
	l.nextXID++
	xid := l.nextXID
	l.mu.Unlock()

	return xid, l.record(xid, typ, body)
}

// Reply implements swlink.SwitchLink: it records the message under
// the given xid rather than allocating a new one.
func (l *MockLink) Reply(xid uint32, typ ofmsg.Type, body []byte) error {
	return l.record(xid, typ, body)
}

func (l *MockLink) record(xid uint32, typ ofmsg.Type, body []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight++
	l.trace = append(l.trace, Sent{Type: typ, XID: xid, Body: body})

	if !l.stalled {
		l.inFlight--
	}

	return nil
}

// Recv implements swlink.SwitchLink.
func (l *MockLink) Recv() (*ofmsg.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.inbox) == 0 {
		return nil, false
	}

	msg := l.inbox[0]
	l.inbox = l.inbox[1:]
	return msg, true
}

// InFlight implements swlink.SwitchLink.
func (l *MockLink) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Wait implements swlink.SwitchLink.
func (l *MockLink) Wait() <-chan struct{} {
	return l.wake
}

// Close implements swlink.SwitchLink.
func (l *MockLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	return nil
}

// Push queues a message as if received from the switch, to be
// consumed by the engine's next Recv poll.
func (l *MockLink) Push(msg *ofmsg.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbox = append(l.inbox, msg)
	l.notify()
}

// PushReply is a convenience wrapper building a Message from a type,
// xid, and pre-encoded body.
func (l *MockLink) PushReply(typ ofmsg.Type, xid uint32, body []byte) {
	l.Push(&ofmsg.Message{Header: ofmsg.Header{Version: ofmsg.Version, Type: typ, XID: xid}, Body: body})
}

// Trace returns every message sent so far, in send order.
func (l *MockLink) Trace() []Sent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Sent(nil), l.trace...)
}

// LastXID returns the most recently assigned transaction id for the
// given message type, or 0 if none was sent.
func (l *MockLink) LastXID(typ ofmsg.Type) uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.trace) - 1; i >= 0; i-- {
		if l.trace[i].Type == typ {
			return l.trace[i].XID
		}
	}
	return 0
}
