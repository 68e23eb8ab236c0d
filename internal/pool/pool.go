package pool

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/metrics"
	"threadpool/internal/queue"

	"github.com/google/uuid"
)

var (
	// ErrInvalidSize はプールサイズが正でない場合のエラー
	ErrInvalidSize = errors.New("pool: size must be positive")
	// ErrPoolClosed は Close 後に Execute された場合のエラー
	ErrPoolClosed = errors.New("pool: closed")
	// ErrNilJob は nil ジョブが投入された場合のエラー
	ErrNilJob = errors.New("pool: nil job")
	// ErrJobPanicked はジョブが panic した場合のエラー
	ErrJobPanicked = errors.New("pool: job panicked")
)

// Config はスレッドプールの設定
type Config struct {
	Size          int         // ワーカー数（正の値が必須）
	RecoverPanics bool        // ジョブの panic を回復してワーカーを生かす
	EventBus      *events.Bus // ライフサイクルイベントの配信先（nil で無効）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Size:          runtime.NumCPU(),
		RecoverPanics: true,
	}
}

// ThreadPool は固定数のワーカーと共有キューを管理する
type ThreadPool struct {
	config  Config
	workers []*Worker
	sender  *queue.Queue[Message]
	metrics *metrics.Metrics

	closeOnce sync.Once
	closed    atomic.Bool
}

// New は size 個のワーカーを持つプールを作成する
// size が正でない場合は panic する
func New(size int) *ThreadPool {
	config := DefaultConfig()
	config.Size = size
	p, err := NewWithConfig(config)
	if err != nil {
		panic(err)
	}
	return p
}

// NewWithConfig は設定を指定してプールを作成する
func NewWithConfig(config Config) (*ThreadPool, error) {
	if config.Size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, config.Size)
	}

	p := &ThreadPool{
		config:  config,
		workers: make([]*Worker, 0, config.Size),
		sender:  queue.New[Message](),
		metrics: metrics.New(),
	}

	for id := range config.Size {
		p.workers = append(p.workers, newWorker(id, p.sender.Receiver(), p))
	}

	logger.Info("", "ThreadPool started with %d workers", config.Size)
	return p, nil
}

// Execute はジョブをキューに送信する（完了は待たない）
// Close 後に呼ぶと panic する
func (p *ThreadPool) Execute(job Job) {
	if job == nil {
		panic(ErrNilJob)
	}

	// 終了通知の後ろに積まれたジョブは実行されない
	if p.closed.Load() {
		panic(ErrPoolClosed)
	}

	id := uuid.NewString()
	if err := p.sender.Send(newJobMessage(id, job)); err != nil {
		panic(fmt.Errorf("%w: %w", ErrPoolClosed, err))
	}
	p.metrics.RecordSubmit()
}

// Close は全ワーカーに終了を通知し、全ワーカーの終了を待つ
// 二回目以降の呼び出しは何もしない
func (p *ThreadPool) Close() {
	p.closeOnce.Do(p.shutdown)
}

// shutdown は二段階で停止する: 全ワーカーへの通知を送り切ってから join する
func (p *ThreadPool) shutdown() {
	start := time.Now()
	p.closed.Store(true)
	p.publish(events.NewShutdownStartedEvent(len(p.workers)))

	logger.Info("", "Sending terminate message to all workers.")
	terminates := make([]Message, len(p.workers))
	for i := range terminates {
		terminates[i] = terminateMessage()
	}
	if err := p.sender.CloseWith(terminates...); err != nil {
		logger.Error("", "Failed to send terminate message: %v", err)
	}

	logger.Info("", "Shutting down all workers.")
	for _, w := range p.workers {
		logger.Info(w.name, "Shutting down worker %d", w.id)
		if h := w.takeHandle(); h != nil {
			h.join()
		}
	}

	elapsed := time.Since(start)
	p.publish(events.NewShutdownCompletedEvent(len(p.workers), elapsed))
	logger.Info("", "ThreadPool stopped in %v", elapsed.Round(time.Microsecond))
}

// publish はイベントバスが設定されていればイベントを配信する
func (p *ThreadPool) publish(e events.Event) {
	if p.config.EventBus != nil {
		p.config.EventBus.Publish(e)
	}
}

// Size はワーカー数を返す
func (p *ThreadPool) Size() int {
	return len(p.workers)
}

// WorkerStates は各ワーカーの状態を返す
func (p *ThreadPool) WorkerStates() []State {
	states := make([]State, len(p.workers))
	for i, w := range p.workers {
		states[i] = w.State()
	}
	return states
}

// RunningWorkers は Running 状態のワーカー数を返す
func (p *ThreadPool) RunningWorkers() int {
	n := 0
	for _, w := range p.workers {
		if w.State() == StateRunning {
			n++
		}
	}
	return n
}

// QueueLen はキューに残っているメッセージ数を返す
func (p *ThreadPool) QueueLen() int {
	return p.sender.Len()
}

// Metrics はジョブのメトリクスを返す
func (p *ThreadPool) Metrics() *metrics.Metrics {
	return p.metrics
}

// Closed は Close が開始されたかどうかを返す
func (p *ThreadPool) Closed() bool {
	return p.closed.Load()
}
