package federation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects per-exchange counters. All methods are safe on a nil
// receiver.
type Metrics struct {
	exchanges *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	bytes     prometheus.Counter
}

// NewMetrics registers the adapter collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyugo",
			Subsystem: "federation",
			Name:      "exchanges_total",
			Help:      "Exchanges seen by the federation adapter, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kyugo",
			Subsystem: "federation",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent inside Federation.Fetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kyugo",
			Subsystem: "federation",
			Name:      "response_bytes_total",
			Help:      "Body bytes projected onto native responses.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.exchanges, m.duration, m.bytes)
	}
	return m
}

func (m *Metrics) observeFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) observeExchange(outcome string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) addBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.Add(float64(n))
}
