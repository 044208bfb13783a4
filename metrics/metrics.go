package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/use-agent/cfmarkdown/models"
)

// Outcome labels for ScrapeRequests.
const (
	OutcomeSuccess = "success"
)

// Metrics holds the mediator's Prometheus collectors.
type Metrics struct {
	ScrapeRequests   *prometheus.CounterVec
	ProviderStatus   *prometheus.CounterVec
	ProviderDuration prometheus.Histogram
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScrapeRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfmarkdown_scrape_requests_total",
				Help: "Scrape requests handled by the mediator, by outcome",
			},
			[]string{"outcome"},
		),
		ProviderStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfmarkdown_provider_status_total",
				Help: "Responses received from the rendering provider, by HTTP status",
			},
			[]string{"status_code"},
		),
		ProviderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cfmarkdown_provider_duration_seconds",
				Help:    "Time spent waiting on the rendering provider",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 90},
			},
		),
	}
	reg.MustRegister(m.ScrapeRequests, m.ProviderStatus, m.ProviderDuration)
	return m
}

// ObserveResult records the outcome of one scrape request.
func (m *Metrics) ObserveResult(result models.ScrapeResult) {
	if m == nil {
		return
	}
	m.ScrapeRequests.WithLabelValues(Outcome(result)).Inc()
}

// ObserveProvider records one provider round trip. status is 0 when no response arrived.
func (m *Metrics) ObserveProvider(status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProviderDuration.Observe(elapsed.Seconds())
	if status > 0 {
		m.ProviderStatus.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

// Outcome maps a result to its label: "success" or the lower-cased error kind.
func Outcome(result models.ScrapeResult) string {
	if result.OK() {
		return OutcomeSuccess
	}
	switch result.Err.Kind {
	case models.KindValidation:
		return "validation"
	case models.KindTransport:
		return "transport"
	case models.KindContract:
		return "contract"
	default:
		return "provider"
	}
}
