// Package metrics counts page views and contact form outcomes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitemail"

// Submission outcomes.
const (
	Delivered = "delivered"
	Failed    = "failed"
)

// Metrics holds the site's collectors. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	pageViews   *prometheus.CounterVec
	submissions *prometheus.CounterVec
	delivery    prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		pageViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_views_total",
			Help:      "Rendered page views by page.",
		}, []string{"page"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_submissions_total",
			Help:      "Contact form submissions by outcome.",
		}, []string{"outcome"}),
		delivery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent handing a contact message to the mail transport.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
	m.Registry.MustRegister(m.pageViews, m.submissions, m.delivery)
	return m
}

// PageView counts one rendered page.
func (m *Metrics) PageView(page string) {
	if m == nil {
		return
	}
	m.pageViews.WithLabelValues(page).Inc()
}

// Submission records the outcome and duration of one delivery attempt.
func (m *Metrics) Submission(err error, took time.Duration) {
	if m == nil {
		return
	}
	outcome := Delivered
	if err != nil {
		outcome = Failed
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.delivery.Observe(took.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
