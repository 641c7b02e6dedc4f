package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "multisender"

var (
	// BlocksObserved counts block notifications delivered to the watcher.
	BlocksObserved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blocks_observed_total",
		Help:      "Block notifications received per network.",
	}, []string{"network"})

	// BalanceFetches counts balance reads by snapshot field and outcome.
	BalanceFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_fetches_total",
		Help:      "Balance reads by field and outcome.",
	}, []string{"field", "outcome"})

	// StaleResults counts fetch results discarded because their epoch was superseded.
	StaleResults = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_results_total",
		Help:      "Results dropped after a teardown.",
	})

	// Submissions counts transfer tickets entering each state.
	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Transfer tickets by state.",
	}, []string{"state"})

	// SessionEpoch is the current connection epoch.
	SessionEpoch = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_epoch",
		Help:      "Current connection session epoch.",
	})

	// RPCRequests counts JSON-RPC requests by network, method and outcome.
	RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "JSON-RPC requests by network, method and outcome.",
	}, []string{"network", "method", "outcome"})

	registerOnce sync.Once
)

// MustRegisterMetrics registers every collector with the default registry once.
func MustRegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(BlocksObserved, BalanceFetches, StaleResults, Submissions, SessionEpoch, RPCRequests)
	})
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
