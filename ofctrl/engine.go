// Package ofctrl is the public API surface of the switch-side flow
// synchronization engine: it drives the connection state machine
// (fsm.go), demultiplexes inbound messages (dispatcher.go), and
// reconciles desired vs. installed flows and groups (reconcile.go).
package ofctrl

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/netrack/ofctrl/config"
	"github.com/netrack/ofctrl/flowtable"
	"github.com/netrack/ofctrl/grouptable"
	"github.com/netrack/ofctrl/ofmsg"
	"github.com/netrack/ofctrl/swlink"
)

// Engine is the single-switch flow synchronization engine. It owns
// the desired/installed flow tables and the connection state machine;
// producers call AddFlow/RemoveFlows/SetFlow between ticks and the
// embedder drives Run/Put once per tick (spec.md §5: "producers must
// call add_flow/remove_flows only between run and put within a single
// tick — enforced by convention, not by a lock").
type Engine struct {
	cfg config.Config
	log *zap.SugaredLogger
	link swlink.SwitchLink

	infoLimiter *rate.Limiter
	warnLimiter *rate.Limiter

	metrics *metrics

	state      State
	xid, xid2  uint32
	pendingMff uint8
	mff        uint8
	lastSeqno  uint64
	seenFirst  bool

	desired   *flowtable.Desired
	installed *flowtable.Installed
	groups    *grouptable.Table
}

// Init creates the engine's switch link (max backoff from cfg,
// default DSCP, OpenFlow 1.3) and initializes the in-flight counter
// and installed flow table (spec.md §6 "init()").
func Init(cfg config.Config, log *zap.SugaredLogger, reg prometheus.Registerer) *Engine {
	link := swlink.NewUnixLink(log, cfg.MaxBackoff)
	return NewEngine(cfg, link, log, reg)
}

// NewEngine builds an engine around an already-constructed
// SwitchLink, letting tests inject a mock in place of a live Unix
// socket connection.
func NewEngine(cfg config.Config, link swlink.SwitchLink, log *zap.SugaredLogger, reg prometheus.Registerer) *Engine {
	return &Engine{
		cfg:         cfg,
		log:         log,
		link:        link,
		infoLimiter: newRateLimiters(),
		warnLimiter: rate.NewLimiter(rate.Every(time.Second/5), 5),
		metrics:     newMetrics(reg),
		desired:     flowtable.NewDesired(),
		installed:   flowtable.NewInstalled(),
	}
}

// Run drives one tick: it connects/disconnects according to bridge,
// detects reconnects, advances the state machine, drains a bounded
// number of inbound messages, and returns the adopted tunnel metadata
// field id (0 if unavailable or disconnected) — spec.md §4.1's tick
// loop, steps 1-7.
func (e *Engine) Run(bridge *string) uint8 {
	if bridge != nil {
		e.link.Connect(e.cfg.Target(*bridge))
	} else {
		e.link.Disconnect()
	}

	if !e.link.Connected() {
		return 0
	}

	if seqno := e.link.Seqno(); seqno != e.lastSeqno {
		if e.seenFirst {
			e.metrics.reconnects.Inc()
		}
		e.seenFirst = true
		e.lastSeqno = seqno
		e.state = StateNew
	}

	e.driveRun()

	for i := 0; i < e.cfg.MaxDrainPerTick; i++ {
		msg, ok := e.link.Recv()
		if !ok {
			break
		}

		prev := e.state
		e.recv(prev, msg)
		if e.state != prev {
			break
		}
	}

	switch e.state {
	case StateClearFlows, StateUpdateFlows:
		return e.mff
	default:
		return 0
	}
}

// Wait registers the link's wakeups with the embedder's event loop
// (spec.md §6 "wait()").
func (e *Engine) Wait() <-chan struct{} {
	return e.link.Wait()
}

// Close tears down the link and frees the flow tables (spec.md §6
// "destroy()"). It does not free a caller-supplied group table — that
// remains the caller's responsibility, per spec.md §5.
func (e *Engine) Close() error {
	var err error
	err = multierr.Append(err, e.link.Close())
	e.installed.Clear()
	e.desired.Clear()
	return err
}

// AddFlow registers a desired flow (spec.md §4.3). Duplicate-owner
// collisions are logged, not surfaced; see flowtable.Desired.AddFlow
// for the exact rule.
func (e *Engine) AddFlow(tableID uint8, priority uint16, m ofmsg.Match, actions []byte, owner uuid.UUID) {
	switch e.desired.AddFlow(tableID, priority, m, actions, owner) {
	case flowtable.DuplicateDropped:
		e.logRateLimited(infoLevel, "duplicate flow", "owner", owner, "table_id", tableID, "priority", priority)
	case flowtable.DuplicateReplaced:
		if e.warnLimiter.Allow() {
			e.log.Warnw("duplicate flow with modified action", "owner", owner, "table_id", tableID, "priority", priority)
		}
	}
}

// RemoveFlows drops every desired flow owned by owner (spec.md §4.3).
func (e *Engine) RemoveFlows(owner uuid.UUID) {
	e.desired.RemoveFlows(owner)
}

// SetFlow replaces every desired flow owned by owner with a single
// new one. This removes *all* flows owned by owner, not just ones
// sharing the new key — surprising, but specified (spec.md §4.3, §9).
func (e *Engine) SetFlow(tableID uint8, priority uint16, m ofmsg.Match, actions []byte, owner uuid.UUID) {
	e.desired.SetFlow(tableID, priority, m, actions, owner)
}

// FlowTableClear drops every desired flow (spec.md §4.3).
func (e *Engine) FlowTableClear() {
	e.desired.Clear()
}

// State returns the engine's current connection state, mainly useful
// for tests and diagnostics.
func (e *Engine) State() State {
	return e.state
}
