// Package ofmsg defines the OpenFlow 1.3 message types the engine
// sends and receives, and the small set of vendor (Nicira/OVS) TLV
// table extension messages needed to negotiate a tunnel metadata
// field. Encoding follows the fixed-header, OXM-match wire format;
// each message is a struct with an Encode method (and a Decode
// function for the ones the engine receives), while Header and Message
// carry the WriteTo/ReadFrom framing.
package ofmsg

import (
	"encoding/binary"
	"errors"
	"io"
)

// Version is the only OpenFlow wire version this package speaks.
const Version uint8 = 0x04 // OFP13_VERSION

// Type identifies the kind of OpenFlow message carried after the
// header.
type Type uint8

const (
	TypeHello Type = iota
	TypeError
	TypeEchoRequest
	TypeEchoReply
	TypeExperimenter

	TypeFeaturesRequest
	TypeFeaturesReply
	TypeGetConfigRequest
	TypeGetConfigReply
	TypeSetConfig

	TypePacketIn
	TypeFlowRemoved
	TypePortStatus

	TypePacketOut
	TypeFlowMod
	TypeGroupMod
	TypePortMod
	TypeTableMod

	TypeMultipartRequest
	TypeMultipartReply

	TypeBarrierRequest
	TypeBarrierReply

	// Nicira/OVS vendor extension messages used to negotiate a
	// tunnel metadata field. Out of the standard OpenFlow 1.3
	// enumeration (they ride on OFPT_EXPERIMENTER on the real wire);
	// kept as first-class Types here since this package's codecs are
	// the only thing that ever needs to tell them apart.
	TypeTLVTableRequest
	TypeTLVTableReply
	TypeTLVTableModify
)

func (t Type) String() string {
	switch t {
	case TypeHello:
		return "HELLO"
	case TypeError:
		return "ERROR"
	case TypeEchoRequest:
		return "ECHO_REQUEST"
	case TypeEchoReply:
		return "ECHO_REPLY"
	case TypeExperimenter:
		return "EXPERIMENTER"
	case TypePacketIn:
		return "PACKET_IN"
	case TypeFlowRemoved:
		return "FLOW_REMOVED"
	case TypePortStatus:
		return "PORT_STATUS"
	case TypeFlowMod:
		return "FLOW_MOD"
	case TypeGroupMod:
		return "GROUP_MOD"
	case TypeTableMod:
		return "TABLE_MOD"
	case TypeBarrierRequest:
		return "BARRIER_REQUEST"
	case TypeBarrierReply:
		return "BARRIER_REPLY"
	case TypeTLVTableRequest:
		return "TLV_TABLE_REQUEST"
	case TypeTLVTableReply:
		return "TLV_TABLE_REPLY"
	case TypeTLVTableModify:
		return "TLV_TABLE_MODIFY"
	default:
		return "UNKNOWN"
	}
}

const headerLen = 8

// Header is the 8-byte preamble shared by every OpenFlow message.
type Header struct {
	Version uint8
	Type    Type
	Length  uint16
	XID     uint32
}

// WriteTo writes the header in big-endian wire format.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	var buf [headerLen]byte
	buf[0] = h.Version
	buf[1] = uint8(h.Type)
	binary.BigEndian.PutUint16(buf[2:4], h.Length)
	binary.BigEndian.PutUint32(buf[4:8], h.XID)

	n, err := w.Write(buf[:])
	return int64(n), err
}

// ReadFrom reads a header from its big-endian wire format.
func (h *Header) ReadFrom(r io.Reader) (int64, error) {
	var buf [headerLen]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return int64(n), err
	}

	h.Version = buf[0]
	h.Type = Type(buf[1])
	h.Length = binary.BigEndian.Uint16(buf[2:4])
	h.XID = binary.BigEndian.Uint32(buf[4:8])
	return int64(n), nil
}

// ErrShortMessage is returned when a message body is shorter than its
// declared header length.
var ErrShortMessage = errors.New("ofmsg: message shorter than header length")

// Message is a decoded OpenFlow message: the header plus its
// still-encoded body, ready for a type-specific decoder.
type Message struct {
	Header Header
	Body   []byte
}

// ReadMessage reads one full OpenFlow message (header + body) from r.
func ReadMessage(r io.Reader) (*Message, error) {
	m := &Message{}
	if _, err := m.Header.ReadFrom(r); err != nil {
		return nil, err
	}

	if int(m.Header.Length) < headerLen {
		return nil, ErrShortMessage
	}

	body := make([]byte, int(m.Header.Length)-headerLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}

	m.Body = body
	return m, nil
}

// WriteTo writes the full message (header + body) to w, fixing up the
// header length first.
func (m *Message) WriteTo(w io.Writer) (int64, error) {
	m.Header.Length = uint16(headerLen + len(m.Body))

	n1, err := m.Header.WriteTo(w)
	if err != nil {
		return n1, err
	}

	n2, err := w.Write(m.Body)
	return n1 + int64(n2), err
}
