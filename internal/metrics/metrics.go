package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	goalRecomputes     *prometheus.CounterVec
	goalSweepDuration  prometheus.Histogram
	goalSweepFailures  prometheus.Counter
	marketDataRequests *prometheus.CounterVec
	reviewsTotal       *prometheus.CounterVec
	jobsActive         *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.goalRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtrack_goal_recomputes_total",
			Help: "Total number of goal recomputes by resulting status",
		},
		[]string{"status"},
	)
	r.goalSweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtrack_goal_sweep_duration_seconds",
			Help:    "Duration of a full in-progress goal refresh",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.goalSweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "backtrack_goal_sweep_failures_total",
			Help: "Goals that failed to refresh during a sweep",
		},
	)
	r.marketDataRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtrack_market_data_requests_total",
			Help: "Market data proxy requests by provider and cache outcome",
		},
		[]string{"provider", "cache"},
	)
	r.reviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtrack_reviews_total",
			Help: "Backtest review jobs by final status",
		},
		[]string{"status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backtrack_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.goalRecomputes)
	reg.MustRegister(r.goalSweepDuration)
	reg.MustRegister(r.goalSweepFailures)
	reg.MustRegister(r.marketDataRequests)
	reg.MustRegister(r.reviewsTotal)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordGoalRecompute records one goal recompute and its resulting status.
func (r *Registry) RecordGoalRecompute(status string) {
	if r == nil {
		return
	}
	r.goalRecomputes.WithLabelValues(status).Inc()
}

// RecordGoalSweep records a batch refresh.
func (r *Registry) RecordGoalSweep(duration float64, failed int) {
	if r == nil {
		return
	}
	r.goalSweepDuration.Observe(duration)
	r.goalSweepFailures.Add(float64(failed))
}

// RecordMarketData records a proxied candle request. cache is "hit" or "miss".
func (r *Registry) RecordMarketData(provider, cache string) {
	if r == nil {
		return
	}
	r.marketDataRequests.WithLabelValues(provider, cache).Inc()
}

// RecordReview records a finished review job.
func (r *Registry) RecordReview(status string) {
	if r == nil {
		return
	}
	r.reviewsTotal.WithLabelValues(status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	if r == nil {
		return
	}
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
