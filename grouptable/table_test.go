package grouptable

import "testing"

func TestPutThenPromoteMovesDesiredToExisting(t *testing.T) {
	tbl := New()
	tbl.Put(7, "bucket=output:1")

	if !tbl.ids.isSet(7) {
		t.Fatalf("expected bitmap bit set after Put")
	}

	tbl.Promote()

	if len(tbl.Desired) != 0 {
		t.Fatalf("expected Desired drained after Promote")
	}

	if !tbl.HasExisting(7) {
		t.Fatalf("expected group 7 to be existing after Promote")
	}
}

func TestPromoteSkipsAlreadyExisting(t *testing.T) {
	tbl := New()
	tbl.Existing[7] = NewGroup(7, "original")
	tbl.Put(7, "replacement")

	tbl.Promote()

	if got := tbl.Existing[7].Body; got != "original" {
		t.Fatalf("expected existing entry to win over a duplicate desired id, got %q", got)
	}
}

func TestClearExistingFreesBitmap(t *testing.T) {
	tbl := New()
	tbl.Put(3, "x")
	tbl.Promote()

	tbl.ClearExisting()

	if tbl.ids.isSet(3) {
		t.Fatalf("expected bitmap bit cleared after ClearExisting")
	}

	if len(tbl.Existing) != 0 {
		t.Fatalf("expected Existing empty after ClearExisting")
	}
}

func TestClearDesiredDropsPending(t *testing.T) {
	tbl := New()
	tbl.Put(1, "x")
	tbl.ClearDesired()

	if len(tbl.Desired) != 0 {
		t.Fatalf("expected Desired empty after ClearDesired")
	}
}

func TestDescriptorRoundTrip(t *testing.T) {
	g := NewGroup(42, "bucket=weight:1,actions=output:2")
	s := Descriptor(g)

	parsed, err := ParseDescriptor(s)
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}

	if parsed.GroupID != g.GroupID || parsed.Body != g.Body {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", parsed, g)
	}
}

func TestParseDescriptorRejectsMalformed(t *testing.T) {
	cases := []string{
		"not_a_descriptor",
		"group_id=abc,body",
		"group_id=5",
	}

	for _, c := range cases {
		if _, err := ParseDescriptor(c); err == nil {
			t.Errorf("ParseDescriptor(%q): expected error", c)
		}
	}
}
