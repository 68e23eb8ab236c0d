package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const defaultMaxLatencySamples = 1000

// Config はメトリクスの設定
type Config struct {
	MaxLatencySamples int // P99 計算用に保持するサンプル数
}

// Metrics はジョブ実行のメトリクスを収集する
type Metrics struct {
	submittedJobs  atomic.Uint64
	completedJobs  atomic.Uint64
	failedJobs     atomic.Uint64
	totalLatencyNs atomic.Uint64
	activeJobs     atomic.Int64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowJobs        uint64
	latencies         []time.Duration
	maxLatencySamples int
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{MaxLatencySamples: defaultMaxLatencySamples})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = defaultMaxLatencySamples
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,
	}
}

// RecordSubmit はジョブの投入を記録する
func (m *Metrics) RecordSubmit() {
	m.submittedJobs.Add(1)
}

// RecordStart はジョブの実行開始を記録する
func (m *Metrics) RecordStart() {
	m.activeJobs.Add(1)
}

// RecordSuccess は正常終了したジョブを記録する
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.activeJobs.Add(-1)
	m.completedJobs.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowJobs++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// RecordFailure は panic したジョブを記録する
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.activeJobs.Add(-1)
	m.failedJobs.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowJobs++
	m.mu.Unlock()
}

// SubmittedJobs は投入されたジョブ数を返す
func (m *Metrics) SubmittedJobs() uint64 {
	return m.submittedJobs.Load()
}

// CompletedJobs は正常終了したジョブ数を返す
func (m *Metrics) CompletedJobs() uint64 {
	return m.completedJobs.Load()
}

// FailedJobs は panic したジョブ数を返す
func (m *Metrics) FailedJobs() uint64 {
	return m.failedJobs.Load()
}

// FinishedJobs は終了したジョブの総数を返す
func (m *Metrics) FinishedJobs() uint64 {
	return m.completedJobs.Load() + m.failedJobs.Load()
}

// ActiveJobs は実行中のジョブ数を返す
func (m *Metrics) ActiveJobs() int64 {
	return m.activeJobs.Load()
}

// PendingJobs はキューで待機中のジョブ数を返す
func (m *Metrics) PendingJobs() uint64 {
	submitted := m.submittedJobs.Load()
	started := m.FinishedJobs() + uint64(max(m.activeJobs.Load(), 0))
	if started >= submitted {
		return 0
	}
	return submitted - started
}

// Throughput は現在のウィンドウの毎秒ジョブ数を返す
func (m *Metrics) Throughput() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowJobs) / elapsed
}

// OverallThroughput は開始からの平均毎秒ジョブ数を返す
func (m *Metrics) OverallThroughput() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.FinishedJobs()) / elapsed
}

// AverageLatency は平均実行時間を返す
func (m *Metrics) AverageLatency() time.Duration {
	total := m.FinishedJobs()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency はP99実行時間を返す（サンプルベース）
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// FailureRate は panic 率を返す（0.0〜1.0）
func (m *Metrics) FailureRate() float64 {
	total := m.FinishedJobs()
	if total == 0 {
		return 0
	}
	return float64(m.failedJobs.Load()) / float64(total)
}

// Reset はウィンドウメトリクスをリセットする
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowJobs = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	SubmittedJobs     uint64        `json:"submitted_jobs"`
	CompletedJobs     uint64        `json:"completed_jobs"`
	FailedJobs        uint64        `json:"failed_jobs"`
	ActiveJobs        int64         `json:"active_jobs"`
	PendingJobs       uint64        `json:"pending_jobs"`
	Throughput        float64       `json:"throughput"`
	OverallThroughput float64       `json:"overall_throughput"`
	AverageLatency    time.Duration `json:"average_latency_ns"`
	P99Latency        time.Duration `json:"p99_latency_ns"`
	FailureRate       float64       `json:"failure_rate"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		SubmittedJobs:     m.SubmittedJobs(),
		CompletedJobs:     m.CompletedJobs(),
		FailedJobs:        m.FailedJobs(),
		ActiveJobs:        m.ActiveJobs(),
		PendingJobs:       m.PendingJobs(),
		Throughput:        m.Throughput(),
		OverallThroughput: m.OverallThroughput(),
		AverageLatency:    m.AverageLatency(),
		P99Latency:        m.P99Latency(),
		FailureRate:       m.FailureRate(),
		Elapsed:           time.Since(m.startTime),
	}
}
