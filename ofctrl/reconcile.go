package ofctrl

import (
	"bytes"

	"github.com/netrack/ofctrl/flowtable"
	"github.com/netrack/ofctrl/grouptable"
	"github.com/netrack/ofctrl/ofmsg"
)

// Put reconciles desired flows and groups against installed switch
// state (spec.md §4.4). The group table pointer is captured on the
// first call and retained across ticks (spec.md §5); callers must
// keep passing the same *grouptable.Table.
func (e *Engine) Put(groups *grouptable.Table) {
	if e.groups == nil {
		e.groups = groups
	}

	if e.state != StateUpdateFlows || e.link.InFlight() != 0 {
		groups.ClearDesired()
		e.metrics.putsSkipped.Inc()
		return
	}

	e.installGroups(groups)
	e.reconcileFlows()
	e.deleteObsoleteGroups(groups)
	groups.Promote()
}

// installGroups is step (a): any desired group not already on the
// switch gets a group-mod ADD. Descriptor parse failures are logged
// and that group is skipped for this tick (spec.md §4.4, §7).
func (e *Engine) installGroups(groups *grouptable.Table) {
	for id, g := range groups.Desired {
		if groups.HasExisting(id) {
			continue
		}

		parsed, err := grouptable.ParseDescriptor(grouptable.Descriptor(g))
		if err != nil {
			e.logRateLimited(errorLevel, "failed to parse group descriptor", "group_id", id, "error", err)
			continue
		}

		gm := ofmsg.GroupMod{Command: ofmsg.GroupAdd, GroupID: parsed.GroupID, Body: []byte(parsed.Body)}
		if _, err := e.link.Send(ofmsg.TypeGroupMod, gm.Encode()); err != nil {
			e.log.Debugw("failed to send group-mod add", "group_id", id, "error", err)
			continue
		}
		e.metrics.groupModsSent.WithLabelValues("add").Inc()
	}
}

// reconcileFlows is steps (b) and (c): delete/modify installed flows
// that no longer match desired state, then install desired flows
// missing from the switch.
func (e *Engine) reconcileFlows() {
	for _, key := range e.installed.Keys() {
		i, ok := e.installed.Get(key)
		if !ok {
			continue
		}

		candidates := e.desired.ByKey(key)
		if len(candidates) == 0 {
			fm := ofmsg.FlowMod{TableID: i.TableID, Priority: i.Priority, Match: i.Match, Command: ofmsg.FlowDeleteStrict}
			if _, err := e.link.Send(ofmsg.TypeFlowMod, fm.Encode()); err != nil {
				e.log.Debugw("failed to send flow-mod delete", "error", err)
			} else {
				e.metrics.flowModsSent.WithLabelValues("delete_strict").Inc()
			}
			e.installed.Delete(key)
			continue
		}

		winner := flowtable.Winner(candidates)

		if i.Owner != winner.Owner {
			e.log.Debugw("installed flow owner reassigned to deterministic winner",
				"table_id", i.TableID, "priority", i.Priority, "owner", winner.Owner)
			i.Owner = winner.Owner
		}

		if !bytes.Equal(i.Actions, winner.Actions) {
			fm := ofmsg.FlowMod{
				TableID: winner.TableID, Priority: winner.Priority,
				Match: winner.Match, Actions: winner.Actions,
				Command: ofmsg.FlowModifyStrict,
			}
			if _, err := e.link.Send(ofmsg.TypeFlowMod, fm.Encode()); err != nil {
				e.log.Debugw("failed to send flow-mod modify", "error", err)
			} else {
				e.metrics.flowModsSent.WithLabelValues("modify_strict").Inc()
			}
			i.Actions = append([]byte(nil), winner.Actions...)
		}
	}

	for _, key := range e.desired.Keys() {
		if _, ok := e.installed.Get(key); ok {
			continue
		}

		candidates := e.desired.ByKey(key)
		if len(candidates) == 0 {
			continue
		}

		winner := flowtable.Winner(candidates)
		fm := ofmsg.FlowMod{
			TableID: winner.TableID, Priority: winner.Priority,
			Match: winner.Match, Actions: winner.Actions,
			Command: ofmsg.FlowAdd,
		}
		if _, err := e.link.Send(ofmsg.TypeFlowMod, fm.Encode()); err != nil {
			e.log.Debugw("failed to send flow-mod add", "error", err)
			continue
		}
		e.metrics.flowModsSent.WithLabelValues("add").Inc()
		e.installed.Put(winner.Duplicate())
	}
}

// deleteObsoleteGroups is step (d): any existing group no longer
// present in desired gets deleted from the switch.
func (e *Engine) deleteObsoleteGroups(groups *grouptable.Table) {
	for id := range groups.Existing {
		if _, stillDesired := groups.Desired[id]; stillDesired {
			continue
		}

		gm := ofmsg.GroupMod{Command: ofmsg.GroupDelete, GroupID: id}
		if _, err := e.link.Send(ofmsg.TypeGroupMod, gm.Encode()); err != nil {
			e.log.Debugw("failed to send group-mod delete", "group_id", id, "error", err)
			continue
		}
		e.metrics.groupModsSent.WithLabelValues("delete").Inc()
		groups.DeleteExisting(id)
	}
}
