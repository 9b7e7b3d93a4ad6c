package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the trade core. Every method is
// safe to call on a nil *Metrics so tests can leave it out.
type Metrics struct {
	registry *prometheus.Registry

	Transitions       *prometheus.CounterVec
	Settlements       prometheus.Counter
	MessagesAppended  *prometheus.CounterVec
	RelayFailures     prometheus.Counter
	LiveSubscriptions prometheus.Gauge
	Deliveries        prometheus.Counter
	SlowSubscribers   prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loops_listing_transitions_total",
			Help: "Listing status transitions by kind and outcome",
		}, []string{"kind", "result"}),
		Settlements: f.NewCounter(prometheus.CounterOpts{
			Name: "loops_settlements_total",
			Help: "Transactions recorded for completed trades",
		}),
		MessagesAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "loops_messages_appended_total",
			Help: "Messages appended to the log by author kind",
		}, []string{"author"}),
		RelayFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "loops_relay_failures_total",
			Help: "Trade updates that could not be posted into the thread",
		}),
		LiveSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Name: "loops_live_subscriptions",
			Help: "Currently open live thread subscriptions",
		}),
		Deliveries: f.NewCounter(prometheus.CounterOpts{
			Name: "loops_deliveries_total",
			Help: "Messages pushed to live subscribers",
		}),
		SlowSubscribers: f.NewCounter(prometheus.CounterOpts{
			Name: "loops_slow_subscribers_total",
			Help: "Live subscriptions closed because their buffer was full",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTransition(kind, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) IncSettlements() {
	if m == nil {
		return
	}
	m.Settlements.Inc()
}

func (m *Metrics) IncMessages(system bool) {
	if m == nil {
		return
	}
	author := "user"
	if system {
		author = "system"
	}
	m.MessagesAppended.WithLabelValues(author).Inc()
}

func (m *Metrics) IncRelayFailures() {
	if m == nil {
		return
	}
	m.RelayFailures.Inc()
}

func (m *Metrics) AddLiveSubscriptions(delta float64) {
	if m == nil {
		return
	}
	m.LiveSubscriptions.Add(delta)
}

func (m *Metrics) IncDeliveries() {
	if m == nil {
		return
	}
	m.Deliveries.Inc()
}

func (m *Metrics) IncSlowSubscribers() {
	if m == nil {
		return
	}
	m.SlowSubscribers.Inc()
}
