package ofmsg

import "testing"

func TestMatchEqualIgnoresInsertionOrder(t *testing.T) {
	a := NewMatch().With(OXMEthType, []byte{0x08, 0x00}).With(OXMIPProto, []byte{6})
	b := NewMatch().With(OXMIPProto, []byte{6}).With(OXMEthType, []byte{0x08, 0x00})

	if !a.Equal(b) {
		t.Fatalf("expected matches built in different field order to be equal")
	}

	if a.Hash() != b.Hash() {
		t.Fatalf("expected equal matches to hash identically")
	}
}

func TestMatchNotEqualOnDifferentValue(t *testing.T) {
	a := NewMatch().With(OXMIPProto, []byte{6})
	b := NewMatch().With(OXMIPProto, []byte{17})

	if a.Equal(b) {
		t.Fatalf("expected matches with different values to differ")
	}
}

func TestMatchBytesLength(t *testing.T) {
	m := NewMatch().With(OXMEthDst, []byte{1, 2, 3, 4, 5, 6})

	if got, want := len(m.Bytes()), 1+1+6+1+0; got != want {
		t.Fatalf("Bytes() length = %d, want %d", got, want)
	}
}
