package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus metrics.
type Metrics struct {
	EventsTotal           *prometheus.CounterVec
	MatchesTotal          *prometheus.CounterVec
	RepliesSentTotal      *prometheus.CounterVec
	RepliesFailedTotal    *prometheus.CounterVec
	ProviderFailuresTotal *prometheus.CounterVec
	CacheRefreshesTotal   prometheus.Counter

	registry *prometheus.Registry
}

// New creates a Metrics instance with all metrics registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_events_total",
				Help: "Total number of classified inbound events",
			},
			[]string{"kind"},
		),
		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_matches_total",
				Help: "Total number of (event, campaign) pairs matched",
			},
			[]string{"kind"},
		),
		RepliesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_replies_sent_total",
				Help: "Total number of replies posted successfully",
			},
			[]string{"kind"},
		),
		RepliesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_replies_failed_total",
				Help: "Total number of replies that ended in a failed journal record",
			},
			[]string{"kind"},
		),
		ProviderFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_provider_failures_total",
				Help: "Total number of failed provider generations",
			},
			[]string{"provider"},
		),
		CacheRefreshesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_cache_refreshes_total",
				Help: "Total number of campaign cache refresh attempts",
			},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.EventsTotal,
		m.MatchesTotal,
		m.RepliesSentTotal,
		m.RepliesFailedTotal,
		m.ProviderFailuresTotal,
		m.CacheRefreshesTotal,
	)
	return m
}

// Registry returns the underlying registry for the HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// EventClassified counts one classified event.
func (m *Metrics) EventClassified(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
}

// CampaignMatched counts one matched pair.
func (m *Metrics) CampaignMatched(kind string) {
	m.MatchesTotal.WithLabelValues(kind).Inc()
}

// ReplySent counts one successful reply.
func (m *Metrics) ReplySent(kind string) {
	m.RepliesSentTotal.WithLabelValues(kind).Inc()
}

// ReplyFailed counts one failed reply.
func (m *Metrics) ReplyFailed(kind string) {
	m.RepliesFailedTotal.WithLabelValues(kind).Inc()
}

// ProviderFailure counts one failed generation.
func (m *Metrics) ProviderFailure(provider string) {
	m.ProviderFailuresTotal.WithLabelValues(provider).Inc()
}

// CacheRefreshed counts one campaign cache refresh pass.
func (m *Metrics) CacheRefreshed() {
	m.CacheRefreshesTotal.Inc()
}
