package grouptable

import (
	"fmt"
	"strconv"
	"strings"
)

// Table pairs a desired group set (populated by producers between
// ticks) with the existing set the switch is known to hold, plus a
// bitmap of group ids currently in use. A single Table is shared
// across producers and the reconciliation engine; its pointer is
// captured on the engine's first Put and retained across ticks
// (spec.md §5).
type Table struct {
	Desired  map[uint32]*Group
	Existing map[uint32]*Group

	ids bitset
}

// New creates an empty group table.
func New() *Table {
	return &Table{
		Desired:  make(map[uint32]*Group),
		Existing: make(map[uint32]*Group),
	}
}

// Put registers a desired group, to be installed on the next
// reconcile. A second Put for the same id before that reconcile
// overwrites the pending descriptor.
func (t *Table) Put(groupID uint32, body string) {
	t.Desired[groupID] = NewGroup(groupID, body)
	t.ids.set(groupID)
}

// ClearDesired drops every pending desired group without installing
// it, used when the reconciliation engine can't run this tick
// (spec.md §4.4 preconditions). Ids that never made it to Existing
// have their bitmap bit freed along with the descriptor.
func (t *Table) ClearDesired() {
	for id := range t.Desired {
		if _, ok := t.Existing[id]; !ok {
			t.ids.clear(id)
		}
	}
	t.Desired = make(map[uint32]*Group)
}

// ClearExisting empties the existing set and frees the corresponding
// bitmap bits, used on S_CLEAR_FLOWS when the engine asserts a
// known-good baseline.
func (t *Table) ClearExisting() {
	for id := range t.Existing {
		t.ids.clear(id)
	}
	t.Existing = make(map[uint32]*Group)
}

// HasExisting reports whether a group with the given id is already
// installed on the switch.
func (t *Table) HasExisting(groupID uint32) bool {
	_, ok := t.Existing[groupID]
	return ok
}

// DeleteExisting removes a group id from the existing set and clears
// its bitmap bit.
func (t *Table) DeleteExisting(groupID uint32) {
	delete(t.Existing, groupID)
	t.ids.clear(groupID)
}

// Promote drains Desired into Existing: any desired entry whose id is
// not yet in Existing is moved across; an id already present is left
// alone and the desired copy discarded (spec.md §4.4 step (e)).
func (t *Table) Promote() {
	for id, g := range t.Desired {
		if _, ok := t.Existing[id]; !ok {
			t.Existing[id] = g
		}
	}
	t.Desired = make(map[uint32]*Group)
}

// Descriptor renders the wire body for a group-mod ADD: the engine's
// "group_id=<id>,<body>" convention (spec.md §4.4 step (a)).
func Descriptor(g *Group) string {
	return fmt.Sprintf("group_id=%d,%s", g.GroupID, g.Body)
}

// ParseDescriptor parses the "group_id=<id>,<body>" convention back
// into a Group. Malformed descriptors return an error; the caller
// (the reconciliation engine) logs and skips that group for the tick
// (spec.md §4.4, §7).
func ParseDescriptor(s string) (*Group, error) {
	const prefix = "group_id="

	if !strings.HasPrefix(s, prefix) {
		return nil, fmt.Errorf("grouptable: descriptor missing %q prefix: %q", prefix, s)
	}

	rest := s[len(prefix):]
	idx := strings.IndexByte(rest, ',')
	if idx < 0 {
		return nil, fmt.Errorf("grouptable: descriptor missing body separator: %q", s)
	}

	id, err := strconv.ParseUint(rest[:idx], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("grouptable: invalid group id in %q: %w", s, err)
	}

	return NewGroup(uint32(id), rest[idx+1:]), nil
}
