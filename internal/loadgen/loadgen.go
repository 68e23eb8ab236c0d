// Package loadgen submits jobs to a pool from several concurrent producers.
package loadgen

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"threadpool/internal/logger"
	"threadpool/internal/pool"
)

// ErrAlreadyRunning は Run が並行して呼ばれた場合のエラー
var ErrAlreadyRunning = errors.New("loadgen: already running")

// Executor はジョブを受け付けるもの（*pool.ThreadPool が満たす）
type Executor interface {
	Execute(job pool.Job)
}

// JobFactory は通し番号からジョブを作る
type JobFactory func(seq int) pool.Job

// Config は Generator の設定
type Config struct {
	Producers int // 並行して投入するゴルーチン数（0で1）
	Jobs      int // 投入するジョブの総数
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Producers: 1,
		Jobs:      100,
	}
}

// Generator は負荷生成器
type Generator struct {
	config  Config
	target  Executor
	factory JobFactory

	running   atomic.Bool
	submitted atomic.Uint64
}

// New は新しい Generator を作成する
func New(target Executor, config Config, factory JobFactory) *Generator {
	if config.Producers <= 0 {
		config.Producers = 1
	}
	return &Generator{
		config:  config,
		target:  target,
		factory: factory,
	}
}

// Run は全ジョブを投入し終えるか ctx が終わるまでブロックする
// 通し番号はプロデューサーごとにストライプされ、各プロデューサー内では昇順に投入される
func (g *Generator) Run(ctx context.Context) (uint64, error) {
	if g.running.Swap(true) {
		return 0, ErrAlreadyRunning
	}
	defer g.running.Store(false)
	g.submitted.Store(0)

	logger.Info("", "Load generator started (producers: %d, jobs: %d)", g.config.Producers, g.config.Jobs)

	var wg sync.WaitGroup
	for p := range g.config.Producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.produce(ctx, p)
		}()
	}
	wg.Wait()

	submitted := g.submitted.Load()
	logger.Info("", "Load generator finished (submitted: %d)", submitted)
	return submitted, ctx.Err()
}

// produce は一つのプロデューサーの投入ループ
func (g *Generator) produce(ctx context.Context, producer int) {
	for seq := producer; seq < g.config.Jobs; seq += g.config.Producers {
		select {
		case <-ctx.Done():
			return
		default:
		}

		g.target.Execute(g.factory(seq))
		g.submitted.Add(1)
	}
}

// Submitted は直近の Run で投入済みのジョブ数を返す
func (g *Generator) Submitted() uint64 {
	return g.submitted.Load()
}

// IsRunning は実行中かどうかを返す
func (g *Generator) IsRunning() bool {
	return g.running.Load()
}
