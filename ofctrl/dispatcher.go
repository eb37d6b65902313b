package ofctrl

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/netrack/ofctrl/ofmsg"
)

// logLevel picks which rate-limited bucket (and zap verb) a log line
// uses. Grounded on spec.md §7's two buckets: "30 msgs per 300s" for
// the general/info/error path, "5 per 1s" for warn paths.
type logLevel int

const (
	debugLevel logLevel = iota
	infoLevel
	errorLevel
)

// logRateLimited logs through the dispatcher's token-bucket limiters
// (spec.md §7: all error logging is rate-limited). debug/info/error
// share the 30-per-300s bucket; nothing in this engine logs at the
// stricter 5-per-1s warn rate except flowtable's own duplicate-flow
// warning, handled in engine.go next to AddFlow.
func (e *Engine) logRateLimited(level logLevel, msg string, kv ...interface{}) {
	if !e.infoLimiter.Allow() {
		return
	}

	switch level {
	case errorLevel:
		e.log.Errorw(msg, kv...)
	case infoLevel:
		e.log.Infow(msg, kv...)
	default:
		e.log.Debugw(msg, kv...)
	}
}

// generic is the fallback handler for messages that don't belong to
// the in-flight request(s) of the current state (spec.md §4.2): reply
// to echoes, swallow the chatty/expected async messages, rate-limit
// everything else.
func (e *Engine) generic(msg *ofmsg.Message) {
	switch msg.Header.Type {
	case ofmsg.TypeEchoRequest:
		req := ofmsg.EchoRequest{Payload: msg.Body}
		reply := ofmsg.EchoReply{Payload: req.Payload}
		if err := e.link.Reply(msg.Header.XID, ofmsg.TypeEchoReply, reply.Encode()); err != nil {
			e.log.Debugw("failed to reply to echo request", "error", err)
		}

	case ofmsg.TypeError:
		em := ofmsg.DecodeError(msg.Body)
		e.logRateLimited(infoLevel, "switch reported error", "type", em.Type, "code", em.Code)

	case ofmsg.TypeEchoReply, ofmsg.TypeBarrierReply, ofmsg.TypePacketIn,
		ofmsg.TypePortStatus, ofmsg.TypeFlowRemoved:
		// Silently ignored, per spec.md §4.2. Packet-in handling is
		// an explicit non-goal (spec.md §1): packets are logged and
		// dropped, but logging every packet-in at even a rate-limited
		// level would itself be the noisiest possible path, so it is
		// folded into the same silent-ignore bucket as the other
		// expected asynchronous messages.

	default:
		e.logRateLimited(debugLevel, "unexpected message", "msg_type", msg.Header.Type)
	}
}

// newRateLimiters builds the general-path token bucket: 30 messages
// per 300 seconds. The 5-per-1s warn-path bucket is built in NewEngine.
func newRateLimiters() *rate.Limiter {
	return rate.NewLimiter(rate.Every(300*time.Second/30), 30)
}
