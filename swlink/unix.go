package swlink

import (
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/netrack/ofctrl/ofmsg"
)

// UnixLink is a SwitchLink backed by a Unix-domain socket, the
// transport OVS management connections use
// ("unix:<run_dir>/<bridge>.mgmt"). Framing and reconnection are
// handled internally; callers only ever see the SwitchLink interface.
type UnixLink struct {
	log        *zap.SugaredLogger
	maxBackoff time.Duration

	mu       sync.Mutex
	conn     net.Conn
	target   string
	seqno    uint64
	xid      uint32
	inFlight int32

	incoming chan *ofmsg.Message
	wake     chan struct{}

	cancelDial context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
}

// NewUnixLink creates a disconnected link. maxBackoff bounds the
// reconnect backoff (spec.md §6 init: "max backoff 5s").
func NewUnixLink(log *zap.SugaredLogger, maxBackoff time.Duration) *UnixLink {
	return &UnixLink{
		log:        log,
		maxBackoff: maxBackoff,
		incoming:   make(chan *ofmsg.Message, 256),
		wake:       make(chan struct{}, 1),
	}
}

func (l *UnixLink) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wait implements SwitchLink.
func (l *UnixLink) Wait() <-chan struct{} { return l.wake }

// Target implements SwitchLink.
func (l *UnixLink) Target() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.target
}

// Connected implements SwitchLink.
func (l *UnixLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// Seqno implements SwitchLink.
func (l *UnixLink) Seqno() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seqno
}

// InFlight implements SwitchLink.
func (l *UnixLink) InFlight() int {
	return int(atomic.LoadInt32(&l.inFlight))
}

// Connect implements SwitchLink. A no-op if already dialed to target;
// otherwise disconnects any existing connection and starts a
// background dial loop with bounded backoff.
func (l *UnixLink) Connect(target string) {
	l.mu.Lock()
	if l.target == target && (l.conn != nil || l.cancelDial != nil) {
		l.mu.Unlock()
		return
	}
	l.disconnectLocked()
	l.target = target

	ctx, cancel := context.WithCancel(context.Background())
	l.cancelDial = cancel
	l.mu.Unlock()

	l.wg.Add(1)
	go l.dialLoop(ctx, target)
}

// Disconnect implements SwitchLink.
func (l *UnixLink) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnectLocked()
	l.target = ""
}

func (l *UnixLink) disconnectLocked() {
	if l.cancelDial != nil {
		l.cancelDial()
		l.cancelDial = nil
	}
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

func (l *UnixLink) dialLoop(ctx context.Context, target string) {
	defer l.wg.Done()

	addr := strings.TrimPrefix(target, "unix:")

	err := retry.Do(
		func() error {
			conn, err := net.DialTimeout("unix", addr, 2*time.Second)
			if err != nil {
				return err
			}
			tuneSocketBuffers(conn, l.log)
			l.onConnected(conn)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0), // retry until ctx is cancelled
		retry.MaxDelay(l.maxBackoff),
		retry.OnRetry(func(n uint, err error) {
			l.log.Debugw("switch dial failed, retrying", "target", target, "attempt", n, "error", err)
		}),
	)

	if err != nil && ctx.Err() == nil {
		l.log.Warnw("switch dial loop aborted", "target", target, "error", err)
	}
}

// tuneSocketBuffers widens the socket's send buffer so a full
// reconcile's worth of flow-mods can be queued without blocking
// (golang.org/x/sys/unix gives us the raw-fd sockopt net.Conn's
// stdlib wrapper doesn't expose).
func tuneSocketBuffers(conn net.Conn, log *zap.SugaredLogger) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return
	}

	const wantBuf = 1 << 20 // 1MiB
	_ = raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, wantBuf); err != nil {
			log.Debugw("failed to widen send buffer", "error", err)
		}
	})
}

func (l *UnixLink) onConnected(conn net.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.seqno++
	l.cancelDial = nil
	l.mu.Unlock()

	l.log.Infow("connected to switch", "seqno", l.seqno)
	l.notify()

	l.wg.Add(1)
	go l.readLoop(conn)
}

func (l *UnixLink) readLoop(conn net.Conn) {
	defer l.wg.Done()

	for {
		msg, err := ofmsg.ReadMessage(conn)
		if err != nil {
			l.mu.Lock()
			if l.conn == conn {
				l.conn = nil
			}
			l.mu.Unlock()
			l.notify()
			return
		}

		select {
		case l.incoming <- msg:
		default:
			l.log.Warnw("inbound queue full, dropping message", "type", msg.Header.Type)
		}
		l.notify()
	}
}

// Send implements SwitchLink.
func (l *UnixLink) Send(typ ofmsg.Type, body []byte) (uint32, error) {
	l.mu.Lock()
	l.xid++
	xid := l.xid
	l.mu.Unlock()

	return xid, l.send(xid, typ, body)
}

// Reply implements SwitchLink: it sends under the given xid rather
// than allocating a new one, so a response can mirror its request.
func (l *UnixLink) Reply(xid uint32, typ ofmsg.Type, body []byte) error {
	return l.send(xid, typ, body)
}

func (l *UnixLink) send(xid uint32, typ ofmsg.Type, body []byte) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	msg := &ofmsg.Message{
		Header: ofmsg.Header{Version: ofmsg.Version, Type: typ, XID: xid},
		Body:   body,
	}

	atomic.AddInt32(&l.inFlight, 1)
	defer atomic.AddInt32(&l.inFlight, -1)

	_, err := msg.WriteTo(conn)
	return err
}

// Recv implements SwitchLink.
func (l *UnixLink) Recv() (*ofmsg.Message, bool) {
	select {
	case msg := <-l.incoming:
		return msg, true
	default:
		return nil, false
	}
}

// Close implements SwitchLink.
func (l *UnixLink) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.disconnectLocked()
	l.target = ""
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}
