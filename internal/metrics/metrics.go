package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	probesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dapigate",
			Name:      "probes_total",
			Help:      "Total number of endpoint health probes by outcome",
		},
		[]string{"outcome"},
	)

	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dapigate",
			Name:      "probe_duration_seconds",
			Help:      "Duration of endpoint health probes",
			Buckets:   prometheus.DefBuckets,
		},
	)

	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dapigate",
			Name:      "cache_hits_total",
			Help:      "Total cache hits",
		},
		[]string{"cache"},
	)

	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dapigate",
			Name:      "cache_misses_total",
			Help:      "Total cache misses",
		},
		[]string{"cache"},
	)

	selectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dapigate",
			Name:      "selections_total",
			Help:      "Endpoint selections by the tier that produced the result",
		},
		[]string{"tier"},
	)
)

func Init() {
	prometheus.MustRegister(probesTotal, probeDuration, cacheHits, cacheMisses, selectionsTotal)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveProbe(outcome string, d time.Duration) {
	probesTotal.WithLabelValues(outcome).Inc()
	probeDuration.Observe(d.Seconds())
}

func IncCacheHit(cache string) {
	cacheHits.WithLabelValues(cache).Inc()
}

func IncCacheMiss(cache string) {
	cacheMisses.WithLabelValues(cache).Inc()
}

func IncSelection(tier string) {
	selectionsTotal.WithLabelValues(tier).Inc()
}
