// Package grouptable holds the group entity and the paired
// desired/existing group maps the reconciliation engine converges.
package grouptable

import "hash/fnv"

// Group is a named bucket collection the switch can reference from
// flow actions (multicast/ECMP). Body is the textual bucket
// descriptor producers hand the engine; the engine treats it as
// opaque past the group id.
type Group struct {
	GroupID uint32
	Body    string
	Hash    uint32
}

// NewGroup builds a Group, computing its Hash from GroupID (spec.md
// §3: "hash (of group_id)").
func NewGroup(groupID uint32, body string) *Group {
	h := fnv.New32a()
	var b [4]byte
	b[0] = byte(groupID >> 24)
	b[1] = byte(groupID >> 16)
	b[2] = byte(groupID >> 8)
	b[3] = byte(groupID)
	h.Write(b[:])

	return &Group{GroupID: groupID, Body: body, Hash: h.Sum32()}
}
