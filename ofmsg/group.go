package ofmsg

import "encoding/binary"

// GroupModCommand selects the operation a GroupMod performs.
type GroupModCommand uint16

const (
	GroupAdd GroupModCommand = iota
	GroupModify
	GroupDelete
)

// GroupAll targets every group in a group-mod (group_id=ALL).
const GroupAll uint32 = 0xfffffffc

// GroupMod is an OFPT_GROUP_MOD message. Body is the pre-encoded
// bucket list textual descriptor turned into wire bytes by the
// group-table layer; this engine never interprets bucket contents,
// only forwards them (groups are opaque past their group_id, per
// spec).
type GroupMod struct {
	Command GroupModCommand
	GroupID uint32
	Body    []byte
}

// Encode renders the GroupMod as an OFPT_GROUP_MOD message body.
func (g GroupMod) Encode() []byte {
	var hdr [8]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(g.Command))
	hdr[2] = 0 // type: unused by this engine (OFPGT_ALL placeholder)
	hdr[3] = 0 // pad
	binary.BigEndian.PutUint32(hdr[4:8], g.GroupID)

	return append(hdr[:], g.Body...)
}

// ClearAllGroups builds the catch-all group-mod sent on
// S_CLEAR_FLOWS: delete every group, every bucket.
func ClearAllGroups() GroupMod {
	return GroupMod{Command: GroupDelete, GroupID: GroupAll}
}
