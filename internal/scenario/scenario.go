package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/loadgen"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/pool"
)

// Config はシナリオの設定
type Config struct {
	Name        string // シナリオ名
	Description string // 説明

	Workers   int // プールのワーカー数
	Producers int // 投入ゴルーチン数
	Jobs      int // ジョブ総数

	JobDuration time.Duration // 各ジョブの実行時間
	PanicEvery  int           // N件ごとに panic させる（0で無効）

	TeardownBound time.Duration // 停止にかけてよい最大時間（0で無検査）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Name:          "default",
		Description:   "Default scenario",
		Workers:       4,
		Producers:     2,
		Jobs:          100,
		TeardownBound: 5 * time.Second,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Producers <= 0 {
		return fmt.Errorf("producers must be positive")
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be non-negative")
	}
	if c.JobDuration < 0 || c.TeardownBound < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	if c.PanicEvery < 0 {
		return fmt.Errorf("panic_every must be non-negative")
	}
	return nil
}

// ordered は投入順の検査が可能な構成かどうか
func (c Config) ordered() bool {
	return c.Workers == 1 && c.Producers == 1
}

// panics は seq 番のジョブが panic するかどうか
func (c Config) panics(seq int) bool {
	return c.PanicEvery > 0 && (seq+1)%c.PanicEvery == 0
}

// Result はシナリオ実行結果
type Result struct {
	ScenarioName string
	StartTime    time.Time
	Duration     time.Duration
	Interrupted  bool

	Workers   int
	Producers int

	// 実行統計
	Expected        int
	Submitted       uint64
	Executed        int
	Lost            int
	Duplicates      int
	Panicked        uint64
	ExpectedPanics  int
	OrderChecked    bool
	OrderViolations int

	// 停止統計
	TeardownTime  time.Duration
	TeardownBound time.Duration

	AvgLatency time.Duration
	P99Latency time.Duration
	Throughput float64
}

// OK は全ての検査に合格したかどうかを返す
func (r *Result) OK() bool {
	if r.Lost != 0 || r.Duplicates != 0 || r.OrderViolations != 0 {
		return false
	}
	if r.Panicked != uint64(r.ExpectedPanics) {
		return false
	}
	if r.TeardownBound > 0 && r.TeardownTime > r.TeardownBound {
		return false
	}
	return true
}

// tracker はジョブの実行回数と順序を記録する
type tracker struct {
	counts []atomic.Int32

	mu    sync.Mutex
	order []int
	keep  bool
}

func newTracker(jobs int, keepOrder bool) *tracker {
	return &tracker{
		counts: make([]atomic.Int32, jobs),
		keep:   keepOrder,
	}
}

func (t *tracker) mark(seq int) {
	t.counts[seq].Add(1)
	if t.keep {
		t.mu.Lock()
		t.order = append(t.order, seq)
		t.mu.Unlock()
	}
}

// Engine はシナリオ実行エンジン
type Engine struct {
	config   Config
	eventBus *events.Bus

	mu      sync.RWMutex
	running bool
	pool    *pool.ThreadPool
}

// New は新しいEngineを作成する
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// SetEventBus はイベントバスを設定する
func (e *Engine) SetEventBus(bus *events.Bus) {
	e.eventBus = bus
}

// Run はシナリオを実行する
// ctx がキャンセルされた場合は投入を打ち切り、投入済みの分だけ検証する
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario config: %w", err)
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	logger.Info("", "=== Scenario '%s' started ===", e.config.Name)
	logger.Info("", "Description: %s", e.config.Description)

	result := &Result{
		ScenarioName:  e.config.Name,
		StartTime:     time.Now(),
		Workers:       e.config.Workers,
		Producers:     e.config.Producers,
		Expected:      e.config.Jobs,
		OrderChecked:  e.config.ordered(),
		TeardownBound: e.config.TeardownBound,
	}

	p, err := pool.NewWithConfig(pool.Config{
		Size:          e.config.Workers,
		RecoverPanics: true,
		EventBus:      e.eventBus,
	})
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	e.mu.Lock()
	e.pool = p
	e.mu.Unlock()

	t := newTracker(e.config.Jobs, result.OrderChecked)
	gen := loadgen.New(p, loadgen.Config{
		Producers: e.config.Producers,
		Jobs:      e.config.Jobs,
	}, e.jobFactory(t))

	submitted, runErr := gen.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		p.Close()
		return nil, runErr
	}
	result.Interrupted = runErr != nil
	result.Submitted = submitted

	teardownStart := time.Now()
	p.Close()
	result.TeardownTime = time.Since(teardownStart)

	result.Duration = time.Since(result.StartTime)
	e.collectResults(result, t, p.Metrics().Snapshot())

	logger.Info("", "=== Scenario '%s' completed ===", e.config.Name)
	return result, nil
}

// jobFactory はシナリオ用のジョブを作る
func (e *Engine) jobFactory(t *tracker) loadgen.JobFactory {
	cfg := e.config
	return func(seq int) pool.Job {
		return func() {
			t.mark(seq)
			if cfg.JobDuration > 0 {
				time.Sleep(cfg.JobDuration)
			}
			if cfg.panics(seq) {
				panic(fmt.Sprintf("scenario job %d panicked on purpose", seq))
			}
		}
	}
}

// collectResults は結果を収集する
func (e *Engine) collectResults(result *Result, t *tracker, snapshot metrics.Snapshot) {
	touched := 0
	for seq := range t.counts {
		n := int(t.counts[seq].Load())
		if n == 0 {
			continue
		}
		touched++
		result.Executed++
		if n > 1 {
			result.Duplicates += n - 1
		}
		if e.config.panics(seq) {
			result.ExpectedPanics++
		}
	}
	result.Lost = int(result.Submitted) - touched

	if t.keep {
		for i := 1; i < len(t.order); i++ {
			if t.order[i] < t.order[i-1] {
				result.OrderViolations++
			}
		}
	}

	result.Panicked = snapshot.FailedJobs
	result.AvgLatency = snapshot.AverageLatency
	result.P99Latency = snapshot.P99Latency
	if secs := result.Duration.Seconds(); secs > 0 {
		result.Throughput = float64(snapshot.CompletedJobs+snapshot.FailedJobs) / secs
	}
}

// Report は結果をフォーマットして返す
func (r *Result) Report() string {
	status := "PASS"
	if !r.OK() {
		status = "FAIL"
	}
	order := "n/a"
	if r.OrderChecked {
		order = fmt.Sprintf("%d violations", r.OrderViolations)
	}
	bound := "unchecked"
	if r.TeardownBound > 0 {
		bound = r.TeardownBound.String()
	}

	return fmt.Sprintf(`
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  Duration:       %v
  Workers:        %d
  Producers:      %d
  Interrupted:    %v

JOB ACCOUNTING
--------------
  Expected:         %d
  Submitted:        %d
  Executed:         %d
  Lost:             %d
  Duplicates:       %d
  Panicked:         %d (expected %d)
  Ordering:         %s

LATENCY
-------
  Avg Latency:      %v
  P99 Latency:      %v
  Throughput:       %.2f jobs/s

TEARDOWN
--------
  Teardown Time:    %v
  Bound:            %s

RESULT: %s
================================================================================`,
		r.ScenarioName,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.Workers,
		r.Producers,
		r.Interrupted,
		r.Expected,
		r.Submitted,
		r.Executed,
		r.Lost,
		r.Duplicates,
		r.Panicked,
		r.ExpectedPanics,
		order,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.Throughput,
		r.TeardownTime.Round(time.Microsecond),
		bound,
		status,
	)
}

// IsRunning は実行中かどうかを返す
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Metrics は直近のプールのメトリクスを返す
func (e *Engine) Metrics() *metrics.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.pool == nil {
		return nil
	}
	snapshot := e.pool.Metrics().Snapshot()
	return &snapshot
}
