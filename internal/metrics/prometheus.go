package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector は Metrics を Prometheus のメトリクスとして公開する
type Collector struct {
	m *Metrics

	submitted *prometheus.Desc
	completed *prometheus.Desc
	failed    *prometheus.Desc
	active    *prometheus.Desc
	pending   *prometheus.Desc
	avgLat    *prometheus.Desc
	p99Lat    *prometheus.Desc
}

// NewCollector は Collector を作成する（登録は呼び出し側で行う）
func NewCollector(m *Metrics, namespace, subsystem string) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil)
	}
	return &Collector{
		m:         m,
		submitted: desc("jobs_submitted_total", "Total number of jobs submitted to the pool"),
		completed: desc("jobs_completed_total", "Total number of jobs that returned normally"),
		failed:    desc("jobs_failed_total", "Total number of jobs that panicked"),
		active:    desc("jobs_active", "Number of jobs currently executing"),
		pending:   desc("jobs_pending", "Number of jobs waiting in the queue"),
		avgLat:    desc("job_latency_average_seconds", "Average job execution time"),
		p99Lat:    desc("job_latency_p99_seconds", "Sampled P99 job execution time"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.submitted
	ch <- c.completed
	ch <- c.failed
	ch <- c.active
	ch <- c.pending
	ch <- c.avgLat
	ch <- c.p99Lat
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.submitted, prometheus.CounterValue, float64(s.SubmittedJobs))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.CompletedJobs))
	ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.FailedJobs))
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(s.ActiveJobs))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(s.PendingJobs))
	ch <- prometheus.MustNewConstMetric(c.avgLat, prometheus.GaugeValue, s.AverageLatency.Seconds())
	ch <- prometheus.MustNewConstMetric(c.p99Lat, prometheus.GaugeValue, s.P99Latency.Seconds())
}

var _ prometheus.Collector = (*Collector)(nil)
