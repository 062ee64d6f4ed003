// Package metrics exposes Prometheus counters for the authentication gate.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "gate",
			Name:      "packets_total",
			Help:      "Inbound datagrams by verdict.",
		},
		[]string{"verdict"},
	)
	lookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "User lookups by result.",
		},
		[]string{"result"},
	)
	lookupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "authgate",
			Subsystem: "lookup",
			Name:      "duration_seconds",
			Help:      "User lookup duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "gate",
			Name:      "rejections_total",
			Help:      "Connections disconnected by the gate, by cause.",
		},
		[]string{"cause"},
	)
	variants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "authgate",
			Subsystem: "gate",
			Name:      "pinned_variants_total",
			Help:      "Client variants pinned to connections.",
		},
		[]string{"variant"},
	)
	peers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "authgate",
			Subsystem: "host",
			Name:      "peers",
			Help:      "Connected peers.",
		},
	)
)

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packets, lookups, lookupDuration, rejections, variants, peers)
	})
}

func RecordVerdict(verdict string) {
	Register()
	packets.WithLabelValues(verdict).Inc()
}

func RecordLookup(result string, seconds float64) {
	Register()
	lookups.WithLabelValues(result).Inc()
	lookupDuration.Observe(seconds)
}

func RecordRejection(cause string) {
	Register()
	rejections.WithLabelValues(cause).Inc()
}

func RecordVariant(variant string) {
	Register()
	variants.WithLabelValues(variant).Inc()
}

func SetPeers(n int) {
	Register()
	peers.Set(float64(n))
}
