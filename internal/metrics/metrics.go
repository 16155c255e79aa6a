package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presence"

type Metrics struct {
	registry *prometheus.Registry

	TimersScheduled prometheus.Counter
	TimersCancelled prometheus.Counter
	Expirations     prometheus.Counter
	ExpirySkipped   *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
}

// New registers the presence collectors on a fresh registry. liveTimers, when
// set, backs the live timer gauge.
func New(liveTimers func() float64) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TimersScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_timers_scheduled_total",
			Help:      "Away timers scheduled, including replacements.",
		}),
		TimersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_timers_cancelled_total",
			Help:      "Away timers cancelled before firing.",
		}),
		Expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expirations_total",
			Help:      "Users moved from ONLINE to AWAY by an expired timer.",
		}),
		ExpirySkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expirations_skipped_total",
			Help:      "Fired timers that did not change the user's status.",
		}, []string{"reason"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Status transitions by previous and current status.",
		}, []string{"from", "to"}),
	}

	reg.MustRegister(
		m.TimersScheduled,
		m.TimersCancelled,
		m.Expirations,
		m.ExpirySkipped,
		m.Transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if liveTimers != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expiry_timers_live",
			Help:      "Away timers currently pending.",
		}, liveTimers))
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
