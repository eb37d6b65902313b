package ofctrl

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netrack/ofctrl/config"
	"github.com/netrack/ofctrl/flowtable"
	"github.com/netrack/ofctrl/grouptable"
	"github.com/netrack/ofctrl/ofctrl/ofctrltest"
	"github.com/netrack/ofctrl/ofmsg"
)

func testEngine(t *testing.T) (*Engine, *ofctrltest.MockLink) {
	t.Helper()

	cfg := config.Default()
	link := ofctrltest.NewMockLink()
	e := NewEngine(cfg, link, zap.NewNop().Sugar(), prometheus.NewRegistry())
	return e, link
}

// encodeTLVTableReply builds a TLVTableReply body by hand, since only
// decoding is exposed in the production code (the switch, not this
// engine, produces these bytes on the wire).
func encodeTLVTableReply(maxOptionSpace uint32, maxFields uint8, mappings []ofmsg.TLVMap) []byte {
	buf := make([]byte, 8, 8+8*len(mappings))
	binary.BigEndian.PutUint32(buf[0:4], maxOptionSpace)
	buf[4] = maxFields

	for _, m := range mappings {
		var entry [8]byte
		binary.BigEndian.PutUint16(entry[0:2], m.Class)
		entry[2] = m.Type
		entry[3] = m.Len
		binary.BigEndian.PutUint16(entry[4:6], m.Index)
		buf = append(buf, entry[:]...)
	}
	return buf
}

func encodeErrorMsg(typ ofmsg.ErrType, code ofmsg.ErrCode) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint16(buf[0:2], uint16(typ))
	binary.BigEndian.PutUint16(buf[2:4], uint16(code))
	return buf[:]
}

// S1: fresh negotiation picks the lowest free slot (0) when the switch
// reports no existing mapping for the configured tunnel option.
func TestScenario_FreshNegotiationSlotZero(t *testing.T) {
	e, link := testEngine(t)
	bridge := "br-int"

	mff := e.Run(&bridge)
	require.Equal(t, uint8(0), mff)
	require.Equal(t, StateTLVRequested, e.State())

	reqXID := link.LastXID(ofmsg.TypeTLVTableRequest)
	require.NotZero(t, reqXID)

	link.PushReply(ofmsg.TypeTLVTableReply, reqXID, encodeTLVTableReply(64, 4, nil))
	mff = e.Run(&bridge)
	require.Equal(t, StateTLVModSent, e.State())
	require.Equal(t, uint8(0), mff)

	barrierXID := link.LastXID(ofmsg.TypeBarrierRequest)
	require.NotZero(t, barrierXID)

	link.PushReply(ofmsg.TypeBarrierReply, barrierXID, nil)
	mff = e.Run(&bridge)
	assert.Equal(t, tunnelFieldBase, mff)
	assert.Equal(t, StateClearFlows, e.State())

	// Next tick runs S_CLEAR_FLOWS synchronously through to S_UPDATE_FLOWS.
	mff = e.Run(&bridge)
	assert.Equal(t, tunnelFieldBase, mff)
	assert.Equal(t, StateUpdateFlows, e.State())

	var sawClearFlow, sawClearGroup bool
	for _, s := range link.Trace() {
		if s.Type == ofmsg.TypeFlowMod {
			sawClearFlow = true
		}
		if s.Type == ofmsg.TypeGroupMod {
			sawClearGroup = true
		}
	}
	assert.True(t, sawClearFlow)
	assert.True(t, sawClearGroup)
}

// S2: the switch already has the configured option mapped at a valid
// index; the engine adopts it without sending a TLV table modify.
func TestScenario_OptionAlreadyMapped(t *testing.T) {
	e, link := testEngine(t)
	bridge := "br-int"

	want := e.cfg.TunnelOption
	e.Run(&bridge)

	reqXID := link.LastXID(ofmsg.TypeTLVTableRequest)
	link.PushReply(ofmsg.TypeTLVTableReply, reqXID, encodeTLVTableReply(64, 4, []ofmsg.TLVMap{
		{Class: want.Class, Type: want.Type, Len: want.Len, Index: 3},
	}))

	mff := e.Run(&bridge)
	assert.Equal(t, tunnelFieldBase+3, mff)
	assert.Equal(t, StateClearFlows, e.State())
	assert.Zero(t, link.LastXID(ofmsg.TypeTLVTableModify))
}

// S3: a race with another controller allocating the same option sends
// the FSM back to S_NEW to retry.
func TestScenario_AllocationRace(t *testing.T) {
	e, link := testEngine(t)
	bridge := "br-int"

	e.Run(&bridge)
	reqXID := link.LastXID(ofmsg.TypeTLVTableRequest)
	link.PushReply(ofmsg.TypeTLVTableReply, reqXID, encodeTLVTableReply(64, 4, nil))

	e.Run(&bridge)
	require.Equal(t, StateTLVModSent, e.State())
	modXID := e.xid

	link.PushReply(ofmsg.TypeError, modXID, encodeErrorMsg(ofmsg.ErrTypeTLVTableMod, ofmsg.ErrCodeTLVDupEntry))
	e.Run(&bridge)
	assert.Equal(t, StateNew, e.State())

	// The next tick re-requests the TLV table.
	e.Run(&bridge)
	assert.Equal(t, StateTLVRequested, e.State())
}

func negotiate(t *testing.T, e *Engine, link *ofctrltest.MockLink, bridge string) {
	t.Helper()

	e.Run(&bridge)
	reqXID := link.LastXID(ofmsg.TypeTLVTableRequest)
	link.PushReply(ofmsg.TypeTLVTableReply, reqXID, encodeTLVTableReply(64, 4, nil))

	e.Run(&bridge) // decodes TLV reply, sends modify+barrier
	barrierXID := link.LastXID(ofmsg.TypeBarrierRequest)
	link.PushReply(ofmsg.TypeBarrierReply, barrierXID, nil)

	e.Run(&bridge) // adopts barrier reply, S_CLEAR_FLOWS
	e.Run(&bridge) // drives S_CLEAR_FLOWS -> S_UPDATE_FLOWS
	require.Equal(t, StateUpdateFlows, e.State())
}

// S4/S5: adding the same (owner, key, actions) twice is a no-op; adding
// the same (owner, key) with different actions updates in place
// rather than creating a second desired entry.
func TestScenario_DuplicateFlow(t *testing.T) {
	e, _ := testEngine(t)
	owner := uuid.New()
	m := ofmsg.NewMatch().With(ofmsg.OXMInPort, []byte{0, 0, 0, 1})

	key := flowtable.KeyOf(0, 100, m)

	e.AddFlow(0, 100, m, []byte{0xAA}, owner)
	assert.Len(t, e.desired.ByKey(key), 1)

	e.AddFlow(0, 100, m, []byte{0xAA}, owner)
	assert.Len(t, e.desired.ByKey(key), 1, "byte-identical duplicate must not be re-inserted")

	e.AddFlow(0, 100, m, []byte{0xBB}, owner)
	flows := e.desired.ByKey(key)
	require.Len(t, flows, 1, "same-owner different-actions must update in place, not append")
	assert.Equal(t, []byte{0xBB}, flows[0].Actions)
}

// S6: when two owners desire flows at the same key, the reconciler
// deterministically installs the one with the lexicographically
// smaller owner UUID.
func TestScenario_CrossOwnerDeterministicWinner(t *testing.T) {
	e, link := testEngine(t)
	negotiate(t, e, link, "br-int")

	m := ofmsg.NewMatch().With(ofmsg.OXMInPort, []byte{0, 0, 0, 2})

	var low, high uuid.UUID
	a, b := uuid.New(), uuid.New()
	if bytes.Compare(a[:], b[:]) < 0 {
		low, high = a, b
	} else {
		low, high = b, a
	}

	e.AddFlow(0, 50, m, []byte{0x01}, high)
	e.AddFlow(0, 50, m, []byte{0x02}, low)

	groups := grouptable.New()
	e.Put(groups)

	key := flowtable.KeyOf(0, 50, m)
	installed, ok := e.installed.Get(key)
	require.True(t, ok)
	assert.Equal(t, low, installed.Owner)
	assert.Equal(t, []byte{0x02}, installed.Actions)
}

// S7: removing an owner's flows and re-adding a new one is reflected
// as a delete followed by an add on the next reconcile.
func TestScenario_RemoveThenAdd(t *testing.T) {
	e, link := testEngine(t)
	negotiate(t, e, link, "br-int")

	owner := uuid.New()
	m1 := ofmsg.NewMatch().With(ofmsg.OXMInPort, []byte{0, 0, 0, 3})
	m2 := ofmsg.NewMatch().With(ofmsg.OXMInPort, []byte{0, 0, 0, 4})
	groups := grouptable.New()

	e.AddFlow(0, 10, m1, []byte{0x01}, owner)
	e.Put(groups)
	require.Equal(t, 1, e.installed.Len())

	e.RemoveFlows(owner)
	e.AddFlow(0, 10, m2, []byte{0x02}, owner)
	e.Put(groups)

	_, stillThere := e.installed.Get(flowtable.KeyOf(0, 10, m1))
	assert.False(t, stillThere)

	replaced, ok := e.installed.Get(flowtable.KeyOf(0, 10, m2))
	require.True(t, ok)
	assert.Equal(t, owner, replaced.Owner)
}

// S8: while a prior batch of flow/group-mods is still in flight, Put
// drops the pending desired group set rather than reconciling.
func TestScenario_BackpressureSkipsReconcile(t *testing.T) {
	e, link := testEngine(t)
	negotiate(t, e, link, "br-int")

	link.Stall()
	_, _ = link.Send(ofmsg.TypeFlowMod, nil) // simulate an in-flight send

	groups := grouptable.New()
	groups.Put(7, "bucket=weight:100,actions=output:1")

	e.Put(groups)

	assert.Empty(t, groups.Desired, "Put must clear pending desired groups when backpressured")
	assert.False(t, groups.HasExisting(7))
}
