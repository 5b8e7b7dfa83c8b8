package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by store and outcome",
		},
		[]string{"store", "op"}, // hit|miss|expired|evicted
	)
	CacheSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries currently resident per store",
		},
		[]string{"store"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests issued to the pricing provider",
		},
		[]string{"endpoint", "outcome"}, // ok|unavailable|rejected|rate_limited
	)
	CollapsedLookups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "collapsed_lookups_total",
			Help: "Lookups that attached to an already in-flight upstream call",
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(CacheOps, CacheSize, UpstreamRequests, CollapsedLookups)
}
