package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "monsoon_client"

// Metrics holds the Prometheus counters and histograms for the reporting flow.
type Metrics struct {
	// Location resolution metrics.
	LocationResolutions *prometheus.CounterVec // labels: outcome={done,permission_denied,position_unavailable,superseded}, accuracy={high,low,none}

	// Submission metrics.
	Submissions    *prometheus.CounterVec   // labels: outcome={success,<failure kind>}
	StageDuration  *prometheus.HistogramVec // labels: stage={upload,create}
	ReportEvents   *prometheus.CounterVec   // labels: outcome={published,error}
	SubmitInFlight prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={reverse,search}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={reverse,search}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={reverse,search}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all client metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.LocationResolutions,
		m.Submissions,
		m.StageDuration,
		m.ReportEvents,
		m.SubmitInFlight,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		LocationResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_resolutions_total",
			Help:      help("Location resolutions by outcome and accuracy tier."),
		}, []string{"outcome", "accuracy"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      help("Report submissions by outcome."),
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_stage_duration_seconds",
			Help:      help("Duration of the upload and create stages in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		ReportEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_events_total",
			Help:      help("Submitted-report events by publication outcome."),
		}, []string{"outcome"}),
		SubmitInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "submit_in_flight",
			Help:      help("1 while a submission is running, 0 otherwise."),
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      help("Geocoding API requests by method and outcome."),
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      help("Geocoding cache lookups by method and result."),
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      help("Geocoding API request duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      help("1 when reverse geocoding enrichment is enabled, 0 otherwise."),
		}),
	}
}
