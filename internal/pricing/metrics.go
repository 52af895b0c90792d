package pricing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// resolveDuration tracks the time taken for offer resolution and pricing.
	resolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_resolve_duration_seconds",
		Help:    "Time taken for offer resolution by operation",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2},
	}, []string{"operation"}) // operation: resolve_offers, price_products

	// candidateCampaigns tracks how many campaigns survive the targeting filter.
	candidateCampaigns = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_candidate_campaigns_count",
		Help:    "Number of campaigns eligible after targeting",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})

	// productsPriced tracks the number of products priced per request.
	productsPriced = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_products_priced_count",
		Help:    "Number of products priced per request",
		Buckets: []float64{1, 5, 10, 20, 50, 100},
	})

	// discountedShare tracks the ratio of priced products that carry an offer.
	discountedShare = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pricing_discounted_share_ratio",
		Help:    "Share of priced products with an applied offer",
		Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
	})

	// stackingRejections counts campaigns dropped by the stacking resolver.
	stackingRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_stacking_rejections_total",
		Help: "Total campaigns excluded by the stacking resolver",
	})

	// conflictRejections counts campaign writes rejected by the conflict checker.
	conflictRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pricing_conflict_rejections_total",
		Help: "Total campaign writes rejected due to product conflicts",
	})

	// sourceFailures counts read-path store failures that degraded to
	// global targeting.
	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_source_failures_total",
		Help: "Read-path store failures by source",
	}, []string{"source"})
)

// MetricsRecorder provides methods to record pricing engine metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordResolveDuration records the duration of a resolution operation.
func (m *MetricsRecorder) RecordResolveDuration(operation string, d time.Duration) {
	resolveDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordCandidateCampaigns records the eligible campaign count.
func (m *MetricsRecorder) RecordCandidateCampaigns(count int) {
	candidateCampaigns.Observe(float64(count))
}

// RecordProductsPriced records priced product counts and the discounted share.
func (m *MetricsRecorder) RecordProductsPriced(total, discounted int) {
	productsPriced.Observe(float64(total))
	if total > 0 {
		discountedShare.Observe(float64(discounted) / float64(total))
	}
}

// RecordStackingRejections records campaigns dropped during stacking.
func (m *MetricsRecorder) RecordStackingRejections(count int) {
	stackingRejections.Add(float64(count))
}

// RecordConflictRejection records a rejected campaign write.
func (m *MetricsRecorder) RecordConflictRejection() {
	conflictRejections.Inc()
}

// RecordSourceFailure records a degraded read-path store call.
func (m *MetricsRecorder) RecordSourceFailure(source string) {
	sourceFailures.WithLabelValues(source).Inc()
}
