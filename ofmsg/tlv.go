package ofmsg

import (
	"encoding/binary"
	"errors"
)

// MaxTunnelSlots is the number of tunnel metadata field slots a
// switch's TLV table can allocate (index must be < 64).
const MaxTunnelSlots = 64

// TLVTableRequest asks the switch to report its current TLV mapping
// table. It carries no body.
type TLVTableRequest struct{}

// Encode renders the (empty) TLV table request body.
func (TLVTableRequest) Encode() []byte { return nil }

// TLVMap is one (class, type, len) -> index binding in the switch's
// TLV table.
type TLVMap struct {
	Class uint16
	Type  uint8
	Len   uint8
	Index uint16
}

const tlvMapSize = 8

// TLVTableReply is the switch's response to a TLVTableRequest: the
// maximum option space plus the current list of bindings.
type TLVTableReply struct {
	MaxOptionSpace uint32
	MaxFields      uint8
	Mappings       []TLVMap
}

// ErrShortTLVReply is returned when a TLV table reply body is too
// short to contain its declared mappings.
var ErrShortTLVReply = errors.New("ofmsg: truncated TLV table reply")

// DecodeTLVTableReply parses a TLV table reply message body.
func DecodeTLVTableReply(body []byte) (TLVTableReply, error) {
	if len(body) < 8 {
		return TLVTableReply{}, ErrShortTLVReply
	}

	reply := TLVTableReply{
		MaxOptionSpace: binary.BigEndian.Uint32(body[0:4]),
		MaxFields:      body[4],
	}

	rest := body[8:]
	for len(rest) >= tlvMapSize {
		reply.Mappings = append(reply.Mappings, TLVMap{
			Class: binary.BigEndian.Uint16(rest[0:2]),
			Type:  rest[2],
			Len:   rest[3],
			Index: binary.BigEndian.Uint16(rest[4:6]),
		})
		rest = rest[tlvMapSize:]
	}

	if len(rest) != 0 {
		return TLVTableReply{}, ErrShortTLVReply
	}

	return reply, nil
}

// TLVTableModCommand selects the TLV table modify operation.
type TLVTableModCommand uint8

const (
	TLVTableModAdd TLVTableModCommand = iota
	TLVTableModDelete
	TLVTableModClear
)

// TLVTableMod binds or unbinds (class, type, len) triples to TLV
// table slots.
type TLVTableMod struct {
	Command  TLVTableModCommand
	Mappings []TLVMap
}

// Encode renders a TLVTableMod message body.
func (m TLVTableMod) Encode() []byte {
	buf := make([]byte, 4, 4+tlvMapSize*len(m.Mappings))
	buf[0] = uint8(m.Command)

	for _, tm := range m.Mappings {
		var entry [tlvMapSize]byte
		binary.BigEndian.PutUint16(entry[0:2], tm.Class)
		entry[2] = tm.Type
		entry[3] = tm.Len
		binary.BigEndian.PutUint16(entry[4:6], tm.Index)
		buf = append(buf, entry[:]...)
	}

	return buf
}

// BarrierRequest carries no body; its reply guarantees every
// previously sent message has been processed by the switch.
type BarrierRequest struct{}

// Encode renders the (empty) barrier request body.
func (BarrierRequest) Encode() []byte { return nil }

// EchoRequest/EchoReply carry an opaque, possibly empty, payload that
// must be echoed back unchanged.
type EchoRequest struct{ Payload []byte }
type EchoReply struct{ Payload []byte }

// Encode renders the echo payload unchanged.
func (e EchoRequest) Encode() []byte { return e.Payload }
func (e EchoReply) Encode() []byte   { return e.Payload }
