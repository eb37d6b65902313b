package ofmsg

import (
	"bytes"
	"encoding/binary"
)

// FlowModCommand selects the operation a FlowMod performs.
type FlowModCommand uint8

const (
	FlowAdd FlowModCommand = iota
	FlowModify
	FlowModifyStrict
	FlowDelete
	FlowDeleteStrict
)

// TableAll targets every flow table in a flow-mod (table_id=ALL).
const TableAll uint8 = 0xff

const (
	bufferNone uint32 = 0xffffffff
	portAny    uint32 = 0xffffffff
	groupAny   uint32 = 0xffffffff
)

// FlowMod is an OFPT_FLOW_MOD message: add, delete, or modify a flow
// table entry. Fields not meaningful to this engine's usage (idle/hard
// timeouts, cookie masks, flags) default to the values OVN itself
// sends: no timeout, no flags, buffer/out_port/out_group wildcarded.
type FlowMod struct {
	TableID  uint8
	Priority uint16
	Match    Match
	Actions  []byte
	Command  FlowModCommand
}

// Encode renders the FlowMod as an OFPT_FLOW_MOD message body
// (everything after the 8-byte header): cookie/mask, table, command,
// timeouts, priority, buffer id, out port/group, flags, match length +
// match bytes, then the pre-encoded action list.
func (f FlowMod) Encode() []byte {
	var buf bytes.Buffer

	var hdr [40]byte
	binary.BigEndian.PutUint64(hdr[0:8], 0)  // cookie
	binary.BigEndian.PutUint64(hdr[8:16], 0) // cookie_mask
	hdr[16] = f.TableID
	hdr[17] = uint8(f.Command)
	binary.BigEndian.PutUint16(hdr[18:20], 0) // idle_timeout
	binary.BigEndian.PutUint16(hdr[20:22], 0) // hard_timeout
	binary.BigEndian.PutUint16(hdr[22:24], f.Priority)
	binary.BigEndian.PutUint32(hdr[24:28], bufferNone)
	binary.BigEndian.PutUint32(hdr[28:32], portAny)
	binary.BigEndian.PutUint32(hdr[32:36], groupAny)
	binary.BigEndian.PutUint16(hdr[36:38], 0) // flags
	binary.BigEndian.PutUint16(hdr[38:40], 0) // pad

	buf.Write(hdr[:])

	matchBytes := f.Match.Bytes()
	var matchHdr [4]byte
	binary.BigEndian.PutUint16(matchHdr[0:2], 1) // OFPMT_OXM
	binary.BigEndian.PutUint16(matchHdr[2:4], uint16(4+len(matchBytes)))
	buf.Write(matchHdr[:])
	buf.Write(matchBytes)

	if pad := (8 - (4+len(matchBytes))%8) % 8; pad > 0 {
		buf.Write(make([]byte, pad))
	}

	buf.Write(f.Actions)
	return buf.Bytes()
}

// ClearAllFlows builds the catch-all flow-mod sent on S_CLEAR_FLOWS:
// delete every flow in every table, matching nothing (wildcard match).
func ClearAllFlows() FlowMod {
	return FlowMod{
		TableID: TableAll,
		Match:   NewMatch(),
		Command: FlowDelete,
	}
}
