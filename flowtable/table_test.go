package flowtable

import (
	"testing"

	"github.com/google/uuid"
)

func TestAddFlowDuplicateSameActionsDropped(t *testing.T) {
	d := NewDesired()
	owner := uuid.New()
	actions := []byte{0xaa}

	if got := d.AddFlow(0, 100, m1(), actions, owner); got != NoDuplicate {
		t.Fatalf("first AddFlow = %v, want NoDuplicate", got)
	}

	if got := d.AddFlow(0, 100, m1(), actions, owner); got != DuplicateDropped {
		t.Fatalf("second AddFlow (same actions) = %v, want DuplicateDropped", got)
	}

	key := KeyOf(0, 100, m1())
	if got := len(d.ByKey(key)); got != 1 {
		t.Fatalf("expected exactly one desired entry, got %d", got)
	}
}

func TestAddFlowDuplicateDifferentActionsReplaces(t *testing.T) {
	d := NewDesired()
	owner := uuid.New()

	d.AddFlow(0, 100, m1(), []byte{0xaa}, owner)
	d.AddFlow(0, 100, m1(), []byte{0xbb}, owner)

	key := KeyOf(0, 100, m1())
	entries := d.ByKey(key)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one desired entry, got %d", len(entries))
	}

	if got := entries[0].Actions; len(got) != 1 || got[0] != 0xbb {
		t.Fatalf("expected replaced actions to be the newer ones, got %v", got)
	}
}

func TestCrossOwnerCollisionKeepsBothEntries(t *testing.T) {
	d := NewDesired()
	u1, u2 := uuid.New(), uuid.New()

	d.AddFlow(0, 100, m1(), []byte{0xaa}, u1)
	d.AddFlow(0, 100, m1(), []byte{0xbb}, u2)

	key := KeyOf(0, 100, m1())
	if got := len(d.ByKey(key)); got != 2 {
		t.Fatalf("expected two entries from different owners sharing a key, got %d", got)
	}
}

func TestRemoveFlowsLeavesOtherOwnersUntouched(t *testing.T) {
	d := NewDesired()
	u1, u2 := uuid.New(), uuid.New()

	d.AddFlow(0, 100, m1(), []byte{0xaa}, u1)
	d.AddFlow(0, 200, m1(), []byte{0xbb}, u2)

	d.RemoveFlows(u1)

	if got := len(d.byOwner[u1]); got != 0 {
		t.Fatalf("expected owner u1 to have no flows, got %d", got)
	}

	if got := len(d.byOwner[u2]); got != 1 {
		t.Fatalf("expected owner u2 untouched, got %d", got)
	}

	if _, ok := d.byKey[KeyOf(0, 100, m1())]; ok {
		t.Fatalf("expected key index to be cleaned up after removing the only owner of it")
	}
}

func TestSetFlowRemovesAllPriorFlowsForOwner(t *testing.T) {
	d := NewDesired()
	owner := uuid.New()

	d.AddFlow(0, 100, m1(), []byte{0xaa}, owner)
	d.AddFlow(1, 200, m1(), []byte{0xbb}, owner)

	d.SetFlow(5, 50, m1(), []byte{0xcc}, owner)

	if got := len(d.byOwner[owner]); got != 1 {
		t.Fatalf("expected exactly one desired flow after SetFlow, got %d", got)
	}

	f := d.byOwner[owner][0]
	if f.TableID != 5 || f.Priority != 50 {
		t.Fatalf("expected SetFlow's flow to have the new key, got table=%d priority=%d", f.TableID, f.Priority)
	}

	if len(f.Actions) != 1 || f.Actions[0] != 0xcc {
		t.Fatalf("expected SetFlow's flow to have the new actions, got %v", f.Actions)
	}
}

func TestClearDropsEverything(t *testing.T) {
	d := NewDesired()
	d.AddFlow(0, 100, m1(), []byte{0xaa}, uuid.New())
	d.Clear()

	if len(d.Keys()) != 0 {
		t.Fatalf("expected no keys after Clear")
	}
}

func TestWinnerPicksLeastUUID(t *testing.T) {
	var low, high uuid.UUID
	for i := range low {
		low[i] = 0x00
		high[i] = 0xff
	}

	f1 := &Flow{Owner: high, Actions: []byte{1}}
	f2 := &Flow{Owner: low, Actions: []byte{2}}

	winner := Winner([]*Flow{f1, f2})
	if winner != f2 {
		t.Fatalf("expected the flow with the numerically smaller owner id to win")
	}
}

func TestInstalledAtMostOnePerKey(t *testing.T) {
	in := NewInstalled()
	key := KeyOf(0, 100, m1())

	in.Put(&Flow{TableID: 0, Priority: 100, Match: m1(), Actions: []byte{1}})
	in.Put(&Flow{TableID: 0, Priority: 100, Match: m1(), Actions: []byte{2}})

	f, ok := in.Get(key)
	if !ok {
		t.Fatalf("expected installed flow to be present")
	}

	if f.Actions[0] != 2 {
		t.Fatalf("expected second Put to overwrite the first under the same key")
	}

	if in.Len() != 1 {
		t.Fatalf("expected exactly one installed flow, got %d", in.Len())
	}
}
