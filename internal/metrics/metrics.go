// Package metrics exposes Prometheus counters for the group-buy engine
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "groupbuy"

var (
	// GroupTransitions counts groups entering a terminal status
	GroupTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "group_transitions_total",
		Help:      "Groups that entered a terminal status.",
	}, []string{"status"})

	// GroupsCreated counts newly created groups
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "groups_created_total",
		Help:      "Groups created by an initiator.",
	})

	// Callbacks counts payment callbacks by provider and outcome
	Callbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_callbacks_total",
		Help:      "Payment callbacks by provider and result.",
	}, []string{"provider", "result"})

	// GatewayCalls counts outbound gateway requests by provider and outcome
	GatewayCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gateway_calls_total",
		Help:      "Outbound payment gateway calls by provider and result.",
	}, []string{"provider", "result"})
)

// Result labels
const (
	ResultOK        = "ok"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultError     = "error"
)
