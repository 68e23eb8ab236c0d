package pool

import (
	"fmt"
	"sync/atomic"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/logger"
	"threadpool/internal/queue"
)

// State はワーカーの状態
type State int32

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// handle はワーカーゴルーチンの終了を待つためのハンドル
type handle struct {
	done chan struct{}
}

// join はゴルーチンが終了するまでブロックする
func (h *handle) join() {
	<-h.done
}

// Worker はキューからメッセージを一つずつ取り出して処理する
type Worker struct {
	id     int
	name   string
	state  atomic.Int32
	thread *handle // Close で一度だけ取り出され nil になる
}

// newWorker はワーカーを作成し、ゴルーチンを起動する
func newWorker(id int, rx *queue.Receiver[Message], p *ThreadPool) *Worker {
	w := &Worker{
		id:   id,
		name: fmt.Sprintf("worker-%d", id),
	}
	w.state.Store(int32(StateRunning))

	h := &handle{done: make(chan struct{})}
	w.thread = h

	go func() {
		defer close(h.done)
		w.run(rx, p)
	}()

	return w
}

// ID はワーカーIDを返す
func (w *Worker) ID() int {
	return w.id
}

// State は現在の状態を返す
func (w *Worker) State() State {
	return State(w.state.Load())
}

// takeHandle はハンドルを取り出す。二回目以降は nil を返す
func (w *Worker) takeHandle() *handle {
	h := w.thread
	w.thread = nil
	return h
}

// run はワーカーのメインループ
func (w *Worker) run(rx *queue.Receiver[Message], p *ThreadPool) {
	var exitErr error
	defer func() {
		w.state.Store(int32(StateTerminated))
		rx.Close()
		p.publish(events.NewWorkerStoppedEvent(w.id, exitErr))
	}()

	p.publish(events.NewWorkerStartedEvent(w.id))

	for {
		msg, err := rx.Recv()
		if err != nil {
			exitErr = err
			logger.Error(w.name, "Worker %d failed to receive: %v", w.id, err)
			return
		}

		switch msg.Kind {
		case KindNewJob:
			logger.Debug(w.name, "Worker %d got a job; executing.", w.id)
			w.execute(msg, p)
		case KindTerminate:
			logger.Info(w.name, "Worker %d was told to terminate.", w.id)
			p.publish(events.NewTerminateReceivedEvent(w.id))
			return
		}
	}
}

// execute はジョブを同期的に実行する
func (w *Worker) execute(msg Message, p *ThreadPool) {
	p.metrics.RecordStart()
	p.publish(events.NewJobStartedEvent(w.id, msg.JobID))
	start := time.Now()

	if p.config.RecoverPanics {
		defer func() {
			if r := recover(); r != nil {
				elapsed := time.Since(start)
				err := fmt.Errorf("%w: %v", ErrJobPanicked, r)
				p.metrics.RecordFailure(elapsed)
				logger.Error(w.name, "Job %s panicked: %v", msg.JobID, r)
				p.publish(events.NewJobPanickedEvent(w.id, msg.JobID, err))
			}
		}()
	}

	msg.Job()

	elapsed := time.Since(start)
	p.metrics.RecordSuccess(elapsed)
	p.publish(events.NewJobFinishedEvent(w.id, msg.JobID, elapsed))
}
