package ofctrl

import "github.com/netrack/ofctrl/ofmsg"

// State is one of the five negotiation/operation states spec.md §4.1
// defines.
type State uint8

const (
	StateNew State = iota
	StateTLVRequested
	StateTLVModSent
	StateClearFlows
	StateUpdateFlows
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "S_NEW"
	case StateTLVRequested:
		return "S_TLV_REQUESTED"
	case StateTLVModSent:
		return "S_TLV_MOD_SENT"
	case StateClearFlows:
		return "S_CLEAR_FLOWS"
	case StateUpdateFlows:
		return "S_UPDATE_FLOWS"
	default:
		return "S_UNKNOWN"
	}
}

// tunnelFieldBase is the stand-in for the switch's first tunnel
// metadata field id (MFF_TUN_METADATA0 in the OVS field registry this
// engine was modeled on). The engine reports tunnelFieldBase+index as
// its adopted field id; 0 still means "disabled" regardless of base.
const tunnelFieldBase uint8 = 0x80

// driveRun executes run(state) repeatedly while the state keeps
// changing, so a synchronous self-transition (S_CLEAR_FLOWS ->
// S_UPDATE_FLOWS) is followed through within the same tick (spec.md
// §4.1 step 5).
func (e *Engine) driveRun() {
	for {
		prev := e.state
		e.run(prev)
		if e.state == prev {
			return
		}
	}
}

func (e *Engine) run(s State) {
	switch s {
	case StateNew:
		e.runNew()
	case StateClearFlows:
		e.runClearFlows()
	default:
		// S_TLV_REQUESTED, S_TLV_MOD_SENT, S_UPDATE_FLOWS are
		// purely reactive: nothing to do until a message arrives.
	}
}

// runNew sends the TLV table request and starts waiting for its
// reply.
func (e *Engine) runNew() {
	xid, err := e.link.Send(ofmsg.TypeTLVTableRequest, ofmsg.TLVTableRequest{}.Encode())
	if err != nil {
		e.log.Debugw("failed to send TLV table request", "error", err)
		return
	}

	e.xid = xid
	e.state = StateTLVRequested
}

// runClearFlows asserts a known-good baseline: delete every flow and
// group on the switch, and mirror that in the in-memory tables, then
// move straight to S_UPDATE_FLOWS. No acknowledgement is awaited; the
// reliable, FIFO link guarantees the clear precedes anything
// reconciliation sends afterward (spec.md §4.1).
func (e *Engine) runClearFlows() {
	fm := ofmsg.ClearAllFlows()
	if _, err := e.link.Send(ofmsg.TypeFlowMod, fm.Encode()); err != nil {
		e.log.Debugw("failed to send clear-all flow-mod", "error", err)
	} else {
		e.metrics.flowModsSent.WithLabelValues("delete_all").Inc()
	}

	gm := ofmsg.ClearAllGroups()
	if _, err := e.link.Send(ofmsg.TypeGroupMod, gm.Encode()); err != nil {
		e.log.Debugw("failed to send clear-all group-mod", "error", err)
	} else {
		e.metrics.groupModsSent.WithLabelValues("delete_all").Inc()
	}

	e.installed.Clear()
	if e.groups != nil {
		e.groups.ClearExisting()
	}

	e.state = StateUpdateFlows
}

// recv dispatches a received message to the handler for the current
// state (spec.md §4.1/§4.2).
func (e *Engine) recv(s State, msg *ofmsg.Message) {
	switch s {
	case StateTLVRequested:
		e.recvTLVRequested(msg)
	case StateTLVModSent:
		e.recvTLVModSent(msg)
	default:
		e.generic(msg)
	}
}

func (e *Engine) recvTLVRequested(msg *ofmsg.Message) {
	if msg.Header.XID != e.xid {
		e.generic(msg)
		return
	}

	switch msg.Header.Type {
	case ofmsg.TypeTLVTableReply:
		e.handleTLVTableReply(msg.Body)
	case ofmsg.TypeError:
		em := ofmsg.DecodeError(msg.Body)
		e.logRateLimited(errorLevel, "switch refused to allocate tunnel option", "type", em.Type, "code", em.Code)
		e.disableTunnel()
	default:
		e.logRateLimited(errorLevel, "unexpected reply to TLV table request", "msg_type", msg.Header.Type)
		e.disableTunnel()
	}
}

func (e *Engine) handleTLVTableReply(body []byte) {
	reply, err := ofmsg.DecodeTLVTableReply(body)
	if err != nil {
		e.logRateLimited(errorLevel, "failed to decode TLV table reply", "error", err)
		e.disableTunnel()
		return
	}

	want := e.cfg.TunnelOption
	var freeMask uint64 = (1 << ofmsg.MaxTunnelSlots) - 1

	for _, m := range reply.Mappings {
		if m.Class == want.Class && m.Type == want.Type && m.Len == want.Len {
			if m.Index >= ofmsg.MaxTunnelSlots {
				e.logRateLimited(errorLevel, "tunnel option already mapped at unsupported index", "index", m.Index)
				e.disableTunnel()
				return
			}

			e.mff = tunnelFieldBase + uint8(m.Index)
			e.metrics.negotiations.WithLabelValues("adopted_existing").Inc()
			e.state = StateClearFlows
			return
		}

		if m.Index < ofmsg.MaxTunnelSlots {
			freeMask &^= 1 << m.Index
		}
	}

	if freeMask == 0 {
		e.logRateLimited(errorLevel, "no tunnel option slots free")
		e.disableTunnel()
		return
	}

	index := lowestSetBit(freeMask)

	xid, err := e.link.Send(ofmsg.TypeTLVTableModify, ofmsg.TLVTableMod{
		Command: ofmsg.TLVTableModAdd,
		Mappings: []ofmsg.TLVMap{{
			Class: want.Class, Type: want.Type, Len: want.Len, Index: uint16(index),
		}},
	}.Encode())
	if err != nil {
		e.log.Debugw("failed to send TLV table modify", "error", err)
		e.disableTunnel()
		return
	}

	xid2, err := e.link.Send(ofmsg.TypeBarrierRequest, ofmsg.BarrierRequest{}.Encode())
	if err != nil {
		e.log.Debugw("failed to send barrier request", "error", err)
		e.disableTunnel()
		return
	}

	e.xid, e.xid2 = xid, xid2
	e.pendingMff = tunnelFieldBase + uint8(index)
	e.state = StateTLVModSent
}

func (e *Engine) recvTLVModSent(msg *ofmsg.Message) {
	if msg.Header.XID != e.xid && msg.Header.XID != e.xid2 {
		e.generic(msg)
		return
	}

	switch {
	case msg.Header.XID == e.xid2 && msg.Header.Type == ofmsg.TypeBarrierReply:
		e.mff = e.pendingMff
		e.metrics.negotiations.WithLabelValues("adopted_new").Inc()
		e.state = StateClearFlows

	case msg.Header.XID == e.xid && msg.Header.Type == ofmsg.TypeError:
		em := ofmsg.DecodeError(msg.Body)
		if em.IsTunnelOptionRace() {
			e.logRateLimited(infoLevel, "raced with another controller allocating tunnel option; retrying")
			e.state = StateNew
		} else {
			e.logRateLimited(errorLevel, "error adding tunnel option", "type", em.Type, "code", em.Code)
			e.disableTunnel()
		}

	default:
		e.logRateLimited(errorLevel, "unexpected reply to tunnel option allocation", "msg_type", msg.Header.Type)
		e.disableTunnel()
	}
}

// disableTunnel gives up on tunnel metadata for this connection and
// proceeds straight to clearing switch state; operation continues,
// upper layers learn via Run's return value (spec.md §7).
func (e *Engine) disableTunnel() {
	e.mff = 0
	e.metrics.negotiations.WithLabelValues("disabled").Inc()
	e.state = StateClearFlows
}

// lowestSetBit returns the index of the least-significant set bit,
// used to pick the lowest free tunnel option slot.
func lowestSetBit(mask uint64) int {
	for i := 0; i < 64; i++ {
		if mask&(1<<uint(i)) != 0 {
			return i
		}
	}
	return -1
}
