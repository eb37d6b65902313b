// Package flowtable holds the desired and installed flow entities and
// the indices the reconciliation engine needs: by match-key and by
// owner id for the desired set, by match-key only for the installed
// set.
package flowtable

import (
	"bytes"

	"github.com/google/uuid"

	"github.com/netrack/ofctrl/ofmsg"
)

// Flow is a forwarding rule (table, priority, match) -> actions,
// attributed to the owner that produced it.
type Flow struct {
	TableID  uint8
	Priority uint16
	Match    ofmsg.Match
	Actions  []byte
	Owner    uuid.UUID
}

// Key identifies a flow by its (table_id, priority, match) triple.
// Multiple owners may produce flows sharing a Key; the desired set
// tolerates that, the installed set does not (at most one Flow per
// Key).
type Key struct {
	TableID  uint8
	Priority uint16
	matchKey uint32
	matchRaw string
}

// KeyOf computes the match-key for a flow: (table_id, priority) plus a
// hash of the match, matching spec.md §4.3's
// "(table_id << 16) | priority combined with a hash of match".
func KeyOf(tableID uint8, priority uint16, m ofmsg.Match) Key {
	return Key{
		TableID:  tableID,
		Priority: priority,
		matchKey: m.Hash(),
		matchRaw: string(m.Bytes()),
	}
}

func (f *Flow) key() Key {
	return KeyOf(f.TableID, f.Priority, f.Match)
}

// sameActions reports whether two action payloads are byte-identical.
func sameActions(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// clone copies the flow's match and actions by value, per spec.md
// §4.3 step 1 ("copy match and actions by value").
func (f Flow) clone() *Flow {
	return f.Duplicate()
}

// Duplicate returns a copy of f with its own actions backing array,
// used by the reconciliation engine when it inserts a desired flow's
// winner into the installed table (spec.md §4.4 step (c): "insert a
// duplicated copy of d into installed").
func (f Flow) Duplicate() *Flow {
	actions := append([]byte(nil), f.Actions...)
	return &Flow{
		TableID:  f.TableID,
		Priority: f.Priority,
		Match:    f.Match,
		Actions:  actions,
		Owner:    f.Owner,
	}
}
