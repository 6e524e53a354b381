// Package metrics holds the prometheus collectors for lead and campaign runs.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadcrawler"

// Metrics owns a private registry.
type Metrics struct {
	registry    *prometheus.Registry
	audited     *prometheus.CounterVec
	leads       *prometheus.CounterVec
	sends       *prometheus.CounterVec
	inboxErrors *prometheus.CounterVec
	searchCalls prometheus.Counter
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		audited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domains_audited_total",
			Help:      "Domains processed by the qualification engine, by outcome.",
		}, []string{"outcome"}),
		leads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_total",
			Help:      "Leads emitted, by tier.",
		}, []string{"tier"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Outreach messages, by kind and result (sent, failed, preview).",
		}, []string{"kind", "result"}),
		inboxErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbox_scan_errors_total",
			Help:      "Failed inbox scans, by sender account.",
		}, []string{"account"}),
		searchCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_api_calls_total",
			Help:      "Billable search API calls.",
		}),
	}
	m.registry.MustRegister(m.audited, m.leads, m.sends, m.inboxErrors, m.searchCalls)
	return m
}

// Registry exposes the registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Audited(outcome string) {
	if m == nil {
		return
	}
	m.audited.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Lead(tier string) {
	if m == nil {
		return
	}
	m.leads.WithLabelValues(tier).Inc()
}

func (m *Metrics) Sent(kind, result string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) InboxError(account string) {
	if m == nil {
		return
	}
	m.inboxErrors.WithLabelValues(account).Inc()
}

func (m *Metrics) SearchCall() {
	if m == nil {
		return
	}
	m.searchCalls.Inc()
}
