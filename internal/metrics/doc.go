// Package metrics provides job execution metrics for the thread pool.
//
// Metrics counts submitted, completed, failed (panicked) and active jobs,
// samples execution latency, and reports throughput. It is thread-safe and
// uses atomic counters on the hot path.
//
// # Basic Usage
//
//	m := metrics.New()
//
//	m.RecordSubmit()
//	m.RecordStart()
//	start := time.Now()
//	// ... run job ...
//	m.RecordSuccess(time.Since(start))
//
//	snap := m.Snapshot()
//
// # Prometheus
//
// NewCollector wraps a Metrics value as a prometheus.Collector:
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(metrics.NewCollector(m, "threadpool", ""))
package metrics
