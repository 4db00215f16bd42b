// Package metrics exports Prometheus counters for imports and submissions,
// plus gauges for stored filing totals.
package metrics

import (
	"context"
	"net/http"
	"time"

	metricsstore "github.com/dalemusser/boirhub/internal/app/store/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors and the registry they live in.
type Metrics struct {
	reg *prometheus.Registry

	// CSV rows by outcome: created, changed, rejected
	ImportRows *prometheus.CounterVec

	// Companies accepted for filing
	Submissions prometheus.Counter

	// FinCEN API calls by step and result
	FilingCalls *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boirhub_import_rows_total",
			Help: "CSV rows reconciled by outcome",
		}, []string{"outcome"}),
		Submissions: f.NewCounter(prometheus.CounterOpts{
			Name: "boirhub_submissions_total",
			Help: "Companies accepted for filing",
		}),
		FilingCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boirhub_fincen_calls_total",
			Help: "FinCEN API calls by step and result",
		}, []string{"step", "result"}),
	}
}

// ImportRow records one reconciled CSV row.
func (m *Metrics) ImportRow(outcome string) {
	if m != nil {
		m.ImportRows.WithLabelValues(outcome).Inc()
	}
}

// Submitted records a company submission.
func (m *Metrics) Submitted() {
	if m != nil {
		m.Submissions.Inc()
	}
}

// FilingCall records a FinCEN API call. err is nil on success.
func (m *Metrics) FilingCall(step string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FilingCalls.WithLabelValues(step, result).Inc()
}

// CountFunc returns current stored totals.
type CountFunc func(ctx context.Context) metricsstore.Counts

// WatchCounts registers gauges that call fn on every scrape.
func (m *Metrics) WatchCounts(fn CountFunc, timeout time.Duration) error {
	return m.reg.Register(&countsCollector{fn: fn, timeout: timeout})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

var (
	companiesDesc = prometheus.NewDesc("boirhub_companies", "Stored companies by state", []string{"state"}, nil)
	usersDesc     = prometheus.NewDesc("boirhub_users", "Stored user accounts", nil, nil)
)

type countsCollector struct {
	fn      CountFunc
	timeout time.Duration
}

func (c *countsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- companiesDesc
	ch <- usersDesc
}

func (c *countsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	n := c.fn(ctx)

	ch <- prometheus.MustNewConstMetric(companiesDesc, prometheus.GaugeValue, float64(n.Companies), "all")
	ch <- prometheus.MustNewConstMetric(companiesDesc, prometheus.GaugeValue, float64(n.Submitted), "submitted")
	ch <- prometheus.MustNewConstMetric(companiesDesc, prometheus.GaugeValue, float64(n.Paid), "paid")
	ch <- prometheus.MustNewConstMetric(companiesDesc, prometheus.GaugeValue, float64(n.Pending), "pending")
	ch <- prometheus.MustNewConstMetric(usersDesc, prometheus.GaugeValue, float64(n.Users))
}
