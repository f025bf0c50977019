// Package metrics defines the Prometheus collectors exported on /metrics.
//
// A nil *Metrics is valid and records nothing, so packages can take one as an optional
// dependency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "groupcal"

// Join outcomes recorded by JoinAttempt.
const (
	JoinJoined        = "joined"
	JoinAlreadyMember = "already_member"
	JoinInvalidCode   = "invalid_code"
	JoinNoGroup       = "no_group"
	JoinStoreError    = "store_error"
)

type Metrics struct {
	registry *prometheus.Registry

	codesGenerated       *prometheus.CounterVec
	joins                *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	rpcRequests          *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		codesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invite_codes_generated_total",
			Help:      "Invite codes generated, by code variant.",
		}, []string{"variant"}),
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_join_attempts_total",
			Help:      "Join attempts by outcome.",
		}, []string{"outcome"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Join notifications that could not be dispatched, by kind.",
		}, []string{"kind"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Connect RPCs handled, by procedure and result code.",
		}, []string{"procedure", "code"}),
	}
	reg.MustRegister(m.codesGenerated, m.joins, m.notificationFailures, m.rpcRequests)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) CodeGenerated(variant string) {
	if m == nil {
		return
	}
	m.codesGenerated.WithLabelValues(variant).Inc()
}

func (m *Metrics) JoinAttempt(outcome string) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotificationFailed(kind string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) RPCHandled(procedure, code string) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
}
