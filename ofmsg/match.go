package ofmsg

import (
	"bytes"
	"hash/fnv"
	"sort"
)

// OXMField identifies an OpenFlow Extensible Match field.
type OXMField uint8

// A handful of OXM fields the engine's producers actually match on;
// the full registry lives in the OpenFlow 1.3 spec and is out of
// scope for this engine (producers hand the engine pre-built matches,
// they don't invent new field types).
const (
	OXMInPort OXMField = iota
	OXMEthDst
	OXMEthSrc
	OXMEthType
	OXMVlanVID
	OXMIPProto
	OXMIPv4Src
	OXMIPv4Dst
	OXMIPv6Src
	OXMIPv6Dst
	OXMTCPSrc
	OXMTCPDst
	OXMUDPSrc
	OXMUDPDst
	OXMMetadata
	OXMTunnelID
)

// oxmEntry is one field=value (optionally masked) predicate.
type oxmEntry struct {
	Field OXMField
	Value []byte
	Mask  []byte
}

// Match is the opaque structured predicate over packet header fields
// and metadata carried by a Flow. Two matches are equal iff they
// carry the same set of field predicates; encoding is deterministic
// (fields sorted) so Match is safe to use as a map key component via
// its Bytes() form.
type Match struct {
	fields []oxmEntry
}

// NewMatch builds a Match that is the conjunction of no predicates
// (matches every packet).
func NewMatch() Match {
	return Match{}
}

// With returns a copy of m with an additional unmasked field
// predicate.
func (m Match) With(field OXMField, value []byte) Match {
	return m.withMasked(field, value, nil)
}

// WithMasked returns a copy of m with an additional masked field
// predicate.
func (m Match) WithMasked(field OXMField, value, mask []byte) Match {
	return m.withMasked(field, value, mask)
}

func (m Match) withMasked(field OXMField, value, mask []byte) Match {
	fields := make([]oxmEntry, len(m.fields), len(m.fields)+1)
	copy(fields, m.fields)
	fields = append(fields, oxmEntry{
		Field: field,
		Value: append([]byte(nil), value...),
		Mask:  append([]byte(nil), mask...),
	})
	return Match{fields: fields}
}

// Bytes returns a deterministic encoding of the match, suitable for
// hashing and equality comparison. Field order in the encoding is
// independent of the order predicates were added in.
func (m Match) Bytes() []byte {
	sorted := append([]oxmEntry(nil), m.fields...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Field < sorted[j].Field
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		buf.WriteByte(byte(e.Field))
		buf.WriteByte(byte(len(e.Value)))
		buf.Write(e.Value)
		buf.WriteByte(byte(len(e.Mask)))
		buf.Write(e.Mask)
	}
	return buf.Bytes()
}

// Equal reports whether m and other carry the same predicates.
func (m Match) Equal(other Match) bool {
	return bytes.Equal(m.Bytes(), other.Bytes())
}

// Hash returns an FNV-1a hash of the match's deterministic encoding,
// used by Flow's match-key.
func (m Match) Hash() uint32 {
	h := fnv.New32a()
	h.Write(m.Bytes())
	return h.Sum32()
}
