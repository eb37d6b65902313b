package ofmsg

import "testing"

func TestGroupModEncode(t *testing.T) {
	gm := GroupMod{Command: GroupAdd, GroupID: 7, Body: []byte("buckets")}
	body := gm.Encode()

	if len(body) != 8+len("buckets") {
		t.Fatalf("Encode() length = %d", len(body))
	}
}

func TestClearAllGroupsTargetsEveryGroup(t *testing.T) {
	gm := ClearAllGroups()

	if gm.GroupID != GroupAll {
		t.Fatalf("ClearAllGroups group id = %#x, want GroupAll", gm.GroupID)
	}

	if gm.Command != GroupDelete {
		t.Fatalf("ClearAllGroups command = %v, want GroupDelete", gm.Command)
	}
}
