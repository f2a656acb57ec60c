package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/splax/teamboard/internal/domain"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}))

		r.requestLatency = registerCollector(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teamboard",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}))

		r.rateLimitHits = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses by route and budget class",
		}, []string{"route", "class"}))

		r.mutations = registerCollector(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teamboard",
			Subsystem: "engine",
			Name:      "mutations_total",
			Help:      "Mutations attempted through the API by operation and outcome",
		}, []string{"op", "outcome"}))

		r.liveViews = registerCollector(prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "teamboard",
			Subsystem: "engine",
			Name:      "live_views",
			Help:      "Open live views over tasks and parts",
		}))
		r.metricsInitialized = true
	})
}

// registerCollector registers c, reusing the collector already registered
// under the same name when several routers share the default registry.
func registerCollector[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, class string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "class": class}).Inc()
}

func (r *Router) recordMutation(op string, err error) {
	if !r.metricsInitialized {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = domain.ErrorCode(err)
	}
	r.mutations.With(prometheus.Labels{"op": op, "outcome": outcome}).Inc()
}

func (r *Router) trackLiveView(delta float64) {
	if !r.metricsInitialized {
		return
	}
	r.liveViews.Add(delta)
}
