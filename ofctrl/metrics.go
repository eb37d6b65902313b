package ofctrl

import "github.com/prometheus/client_golang/prometheus"

// metrics are the engine's own operational counters: how many
// flow-mods and group-mods it has emitted, how many times it has
// reconnected, and the outcome of tunnel option negotiation. Grounded
// on rockstar-0000-aistore's pervasive use of
// github.com/prometheus/client_golang for exactly this kind of
// "counter per operation kind" instrumentation.
type metrics struct {
	flowModsSent    *prometheus.CounterVec
	groupModsSent   *prometheus.CounterVec
	reconnects      prometheus.Counter
	negotiations    *prometheus.CounterVec
	putsSkipped     prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		flowModsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofctrl",
			Name:      "flow_mods_sent_total",
			Help:      "Flow-mod messages sent to the switch, by command.",
		}, []string{"command"}),
		groupModsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofctrl",
			Name:      "group_mods_sent_total",
			Help:      "Group-mod messages sent to the switch, by command.",
		}, []string{"command"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ofctrl",
			Name:      "switch_reconnects_total",
			Help:      "Number of times the switch connection sequence number changed.",
		}),
		negotiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ofctrl",
			Name:      "tunnel_option_negotiations_total",
			Help:      "Tunnel metadata option negotiation outcomes.",
		}, []string{"outcome"}),
		putsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ofctrl",
			Name:      "reconcile_skipped_total",
			Help:      "Put calls that skipped reconciliation (not ready, or messages in flight).",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.flowModsSent, m.groupModsSent, m.reconnects,
			m.negotiations, m.putsSkipped)
	}

	return m
}
