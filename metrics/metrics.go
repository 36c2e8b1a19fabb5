// Package metrics exposes the Prometheus instrumentation surface for the
// anchor loop, the verifier, and upstream provider calls.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the minimal set of gauges/counters the rest of the process
// updates. It's constructed once by node.New and threaded through by
// reference, juno-style, rather than relying on prometheus's global
// default registry from every package.
type Registry struct {
	AnchorBlockNumber        prometheus.Gauge
	AnchorUpdateTotal        prometheus.Counter
	AnchorStaleTotal         prometheus.Counter
	AnchorFailureTotal       prometheus.Counter
	VerificationFailureTotal prometheus.Counter
	ProviderLatency          *prometheus.HistogramVec
}

// NewRegistry constructs and registers every metric against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	m := &Registry{
		AnchorBlockNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "beerus",
			Name:      "anchor_block_number",
			Help:      "L2 block number of the currently anchored state root.",
		}),
		AnchorUpdateTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beerus",
			Name:      "anchor_state_root_update_total",
			Help:      "Count of times the anchored state root advanced.",
		}),
		AnchorStaleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beerus",
			Name:      "anchor_stale_total",
			Help:      "Count of polls discarded because the L1 core contract reported a non-advancing block number.",
		}),
		AnchorFailureTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beerus",
			Name:      "anchor_poll_failure_total",
			Help:      "Count of anchor poll attempts that failed to read the L1 core contract.",
		}),
		VerificationFailureTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "beerus",
			Name:      "verification_failure_total",
			Help:      "Count of proof verifications that failed (hash mismatch or malformed proof).",
		}),
		ProviderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "beerus",
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of upstream L2 provider JSON-RPC calls, by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		m.AnchorBlockNumber,
		m.AnchorUpdateTotal,
		m.AnchorStaleTotal,
		m.AnchorFailureTotal,
		m.VerificationFailureTotal,
		m.ProviderLatency,
	)
	return m
}
