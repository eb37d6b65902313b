package flowtable

import (
	"github.com/google/uuid"

	"github.com/netrack/ofctrl/ofmsg"
)

// Desired is the producer-facing flow table (§4.3): flows indexed both
// by match-key (collisions allowed, multiple owners may share a key)
// and by owner id (one owner may own many flows).
type Desired struct {
	byKey   map[Key][]*Flow
	byOwner map[uuid.UUID][]*Flow
}

// NewDesired creates an empty desired flow table.
func NewDesired() *Desired {
	return &Desired{
		byKey:   make(map[Key][]*Flow),
		byOwner: make(map[uuid.UUID][]*Flow),
	}
}

// DuplicateAction records what AddFlow did when it found an existing
// entry sharing (owner, key): either the new record was dropped as a
// pure duplicate, or the existing entry's actions were replaced.
type DuplicateAction int

const (
	// NoDuplicate means no prior entry shared (owner, key); the flow
	// was inserted normally.
	NoDuplicate DuplicateAction = iota
	// DuplicateDropped means a byte-identical entry already existed;
	// the new record was discarded.
	DuplicateDropped
	// DuplicateReplaced means an entry existed with different
	// actions; its actions were overwritten with the newer ones.
	DuplicateReplaced
)

// AddFlow inserts a new desired flow, applying spec.md §4.3's
// duplicate-owner rule: among entries already sharing this flow's
// match-key, any owned by the same owner is either left alone (if
// actions match byte-for-byte) or updated in place (newer actions
// win) — in both case the new record is never inserted as a second
// entry for that owner.
func (d *Desired) AddFlow(tableID uint8, priority uint16, m ofmsg.Match, actions []byte, owner uuid.UUID) DuplicateAction {
	key := KeyOf(tableID, priority, m)

	for _, existing := range d.byKey[key] {
		if existing.Owner != owner {
			continue
		}

		if sameActions(existing.Actions, actions) {
			return DuplicateDropped
		}

		existing.Actions = append([]byte(nil), actions...)
		return DuplicateReplaced
	}

	f := (&Flow{TableID: tableID, Priority: priority, Match: m, Actions: actions, Owner: owner}).clone()
	d.byKey[key] = append(d.byKey[key], f)
	d.byOwner[owner] = append(d.byOwner[owner], f)
	return NoDuplicate
}

// RemoveFlows deletes every desired flow owned by owner from both
// indices.
func (d *Desired) RemoveFlows(owner uuid.UUID) {
	owned, ok := d.byOwner[owner]
	if !ok {
		return
	}
	delete(d.byOwner, owner)

	for _, f := range owned {
		key := f.key()
		d.byKey[key] = removeFlow(d.byKey[key], f)
		if len(d.byKey[key]) == 0 {
			delete(d.byKey, key)
		}
	}
}

// SetFlow removes every flow owned by owner, then adds the given
// flow. Note this removes *all* flows owned by owner, not just ones
// sharing the new flow's key — surprising, but specified (spec.md
// §4.3, §9).
func (d *Desired) SetFlow(tableID uint8, priority uint16, m ofmsg.Match, actions []byte, owner uuid.UUID) {
	d.RemoveFlows(owner)
	d.AddFlow(tableID, priority, m, actions, owner)
}

// Clear drops every desired flow from both indices.
func (d *Desired) Clear() {
	d.byKey = make(map[Key][]*Flow)
	d.byOwner = make(map[uuid.UUID][]*Flow)
}

// ByKey returns the desired flows sharing the given match-key, or nil
// if there are none. The returned slice must not be mutated by the
// caller.
func (d *Desired) ByKey(key Key) []*Flow {
	return d.byKey[key]
}

// Keys returns every match-key currently present in the desired set.
func (d *Desired) Keys() []Key {
	keys := make([]Key, 0, len(d.byKey))
	for k := range d.byKey {
		keys = append(keys, k)
	}
	return keys
}

func removeFlow(flows []*Flow, target *Flow) []*Flow {
	out := flows[:0]
	for _, f := range flows {
		if f != target {
			out = append(out, f)
		}
	}
	return out
}

// Installed is the switch-facing flow table: at most one Flow per
// match-key, created and destroyed only by the reconciliation engine.
type Installed struct {
	byKey map[Key]*Flow
}

// NewInstalled creates an empty installed flow table.
func NewInstalled() *Installed {
	return &Installed{byKey: make(map[Key]*Flow)}
}

// Get returns the installed flow for key, if any.
func (in *Installed) Get(key Key) (*Flow, bool) {
	f, ok := in.byKey[key]
	return f, ok
}

// Put installs (or overwrites) the flow under its own key.
func (in *Installed) Put(f *Flow) {
	in.byKey[f.key()] = f
}

// Delete removes the installed flow for key, if any.
func (in *Installed) Delete(key Key) {
	delete(in.byKey, key)
}

// Keys returns every match-key currently installed.
func (in *Installed) Keys() []Key {
	keys := make([]Key, 0, len(in.byKey))
	for k := range in.byKey {
		keys = append(keys, k)
	}
	return keys
}

// Clear empties the installed table, used on S_CLEAR_FLOWS when the
// engine asserts a known-good baseline.
func (in *Installed) Clear() {
	in.byKey = make(map[Key]*Flow)
}

// Len reports how many flows are currently installed.
func (in *Installed) Len() int {
	return len(in.byKey)
}
