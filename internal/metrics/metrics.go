// Package metrics records per-run Prometheus metrics and pushes them to a
// Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"reporter/internal/domain"
)

// Metrics holds the Prometheus metrics for one reporting run. Each run uses
// its own registry so the values pushed reflect only that run.
type Metrics struct {
	registry *prometheus.Registry

	ChangedPages     *prometheus.GaugeVec
	SiteFailures     *prometheus.CounterVec
	SubmissionStatus prometheus.Gauge
	RunDuration      prometheus.Gauge
	LastSuccess      prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ChangedPages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "publishing_report_changed_pages",
			Help: "Pages changed during the reported period, by site",
		}, []string{"site"}),
		SiteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "publishing_report_site_fetch_failures_total",
			Help: "Sites whose changed-page count could not be fetched",
		}, []string{"site"}),
		SubmissionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publishing_report_submission_status_code",
			Help: "HTTP status of the last report submission (0 when no response)",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publishing_report_run_duration_seconds",
			Help: "Wall time of the last reporting run",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publishing_report_last_success_timestamp_seconds",
			Help: "Unix time of the last run that created a report",
		}),
	}
	reg.MustRegister(m.ChangedPages, m.SiteFailures, m.SubmissionStatus, m.RunDuration, m.LastSuccess)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSiteCount records the changed-page count for a site.
func (m *Metrics) ObserveSiteCount(site domain.Site, count int) {
	m.ChangedPages.WithLabelValues(string(site)).Set(float64(count))
}

// ObserveSiteFailure counts a failed site fetch.
func (m *Metrics) ObserveSiteFailure(site domain.Site) {
	m.SiteFailures.WithLabelValues(string(site)).Inc()
}

// ObserveSubmission records the submission status and, on 201, the time of
// success.
func (m *Metrics) ObserveSubmission(statusCode int, created bool, at time.Time) {
	m.SubmissionStatus.Set(float64(statusCode))
	if created {
		m.LastSuccess.Set(float64(at.Unix()))
	}
}

// ObserveRun records the duration of a run.
func (m *Metrics) ObserveRun(d time.Duration) {
	m.RunDuration.Set(d.Seconds())
}

// Push sends the registry to a Prometheus Pushgateway under the given job
// name, replacing any previous push for the job.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
