package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests           *prometheus.CounterVec
	CounterHandleRequestPanic prometheus.Counter
	CounterMutations          *prometheus.CounterVec
	CounterRollbacks          *prometheus.CounterVec
	CounterRefetches          *prometheus.CounterVec
	CounterStaleRefetches     *prometheus.CounterVec

	// gauges
	GaugeRequests          prometheus.Gauge
	GaugeLifeSignal        prometheus.Gauge
	GaugeInflightMutations prometheus.Gauge

	// histograms
	HistogramRequestDuration    *prometheus.HistogramVec
	HistogramRemoteCallDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("gymplanner", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("gymplanner", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming bridge requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterMutations := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "mutations",
		Help:      "Guarded mutations by operation and outcome",
	}, []string{"op", "outcome"})
	counterRollbacks := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rollbacks",
		Help:      "Optimistic effects reverted after a remote failure",
	}, []string{"op"})
	counterRefetches := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "refetches",
		Help:      "Authoritative refetches by collection and result",
	}, []string{"collection", "result"})
	counterStaleRefetches := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "stale_refetches_dropped",
		Help:      "Refetch results discarded because a newer one was issued",
	}, []string{"collection"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of bridge connections",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeInflightMutations := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "inflight_mutations",
		Help:      "Mutations applied locally and not yet settled",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for bridge requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})
	histogramRemoteCallDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "remote_call_duration_seconds",
		Help:      "Duration of calls to the backend in seconds",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"op", "outcome"})

	return &Manager{
		CounterRequests:             counterRequests,
		CounterHandleRequestPanic:   counterHandleRequestPanic,
		CounterMutations:            counterMutations,
		CounterRollbacks:            counterRollbacks,
		CounterRefetches:            counterRefetches,
		CounterStaleRefetches:       counterStaleRefetches,
		GaugeRequests:               gaugeRequests,
		GaugeLifeSignal:             gaugeLifeSignal,
		GaugeInflightMutations:      gaugeInflightMutations,
		HistogramRequestDuration:    histogramRequestDuration,
		HistogramRemoteCallDuration: histogramRemoteCallDuration,
	}
}
