package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"threadpool/internal/events"
	"threadpool/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeWithin は Close が d 以内に終わることを確認する
func closeWithin(t *testing.T, p *ThreadPool, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("Close did not return within %v", d)
	}
}

func TestNewCreatesWorkers(t *testing.T) {
	for _, size := range []int{1, 2, 4, 9} {
		p := New(size)
		assert.Equal(t, size, p.Size())
		assert.Equal(t, size, p.RunningWorkers())
		for i, s := range p.WorkerStates() {
			assert.Equal(t, StateRunning, s, "worker %d", i)
		}
		p.Close()
	}
}

func TestNewZeroPanics(t *testing.T) {
	assert.PanicsWithError(t, "pool: size must be positive: got 0", func() {
		New(0)
	})
	assert.Panics(t, func() {
		New(-3)
	})
}

func TestNewWithConfigInvalidSize(t *testing.T) {
	p, err := NewWithConfig(Config{Size: 0})
	require.ErrorIs(t, err, ErrInvalidSize)
	assert.Nil(t, p)
}

func TestEveryWorkerExecutesJobs(t *testing.T) {
	const size = 4
	p := New(size)
	defer p.Close()

	// 全ワーカーを同時にブロックさせ、各ワーカーが独立して実行できることを確認する
	var started sync.WaitGroup
	started.Add(size)
	release := make(chan struct{})
	for range size {
		p.Execute(func() {
			started.Done()
			<-release
		})
	}

	waited := make(chan struct{})
	go func() {
		started.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("not every worker picked up a job")
	}
	assert.Equal(t, int64(size), p.Metrics().ActiveJobs())
	close(release)
}

func TestAllJobsRunExactlyOnce(t *testing.T) {
	const numJobs = 500
	p := New(3)

	var counter atomic.Int64
	runs := make([]atomic.Int32, numJobs)
	for i := range numJobs {
		p.Execute(func() {
			runs[i].Add(1)
			counter.Add(1)
		})
	}
	p.Close()

	assert.Equal(t, int64(numJobs), counter.Load())
	for i := range runs {
		require.Equal(t, int32(1), runs[i].Load(), "job %d", i)
	}
	assert.Equal(t, uint64(numJobs), p.Metrics().CompletedJobs())
}

func TestSingleWorkerFIFO(t *testing.T) {
	p := New(1)

	var flag atomic.Bool
	var observed atomic.Bool
	p.Execute(func() {
		time.Sleep(10 * time.Millisecond)
		flag.Store(true)
	})
	p.Execute(func() {
		observed.Store(flag.Load())
	})
	p.Close()

	assert.True(t, observed.Load(), "job B ran before job A's effect was visible")
}

func TestSingleWorkerPreservesSubmissionOrder(t *testing.T) {
	p := New(1)

	var mu sync.Mutex
	var order []int
	for i := range 100 {
		p.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	p.Close()

	require.Len(t, order, 100)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestCloseTerminatesAllWorkers(t *testing.T) {
	bus := events.NewBus()
	sub := bus.SubscribeBuffered(1000)

	p, err := NewWithConfig(Config{Size: 5, RecoverPanics: true, EventBus: bus})
	require.NoError(t, err)

	p.Close()

	assert.True(t, p.Closed())
	assert.Equal(t, 0, p.RunningWorkers())
	for _, s := range p.WorkerStates() {
		assert.Equal(t, StateTerminated, s)
	}
	assert.Equal(t, 0, p.QueueLen(), "every terminate message must be consumed")

	bus.Close()
	terminates := make(map[int]int)
	var stopped, completed int
	for e := range sub {
		switch e.Type {
		case events.EventTerminateReceived:
			terminates[e.WorkerID]++
		case events.EventWorkerStopped:
			stopped++
		case events.EventShutdownCompleted:
			completed++
		}
	}
	assert.Len(t, terminates, 5)
	for id, n := range terminates {
		assert.Equal(t, 1, n, "worker %d received %d terminate messages", id, n)
	}
	assert.Equal(t, 5, stopped)
	assert.Equal(t, 1, completed)
}

func TestCloseIsIdempotent(t *testing.T) {
	p := New(2)
	p.Close()
	closeWithin(t, p, time.Second)
}

func TestCloseRunsQueuedJobsFirst(t *testing.T) {
	p := New(2)

	var counter atomic.Int32
	for range 20 {
		p.Execute(func() {
			time.Sleep(time.Millisecond)
			counter.Add(1)
		})
	}
	p.Close()

	assert.Equal(t, int32(20), counter.Load())
}

func TestCloseWaitsForBoundedJobs(t *testing.T) {
	p := New(2)

	var finished atomic.Int32
	for range 2 {
		p.Execute(func() {
			time.Sleep(50 * time.Millisecond)
			finished.Add(1)
		})
	}

	closeWithin(t, p, 2*time.Second)
	assert.Equal(t, int32(2), finished.Load(), "Close returned before in-flight jobs finished")
}

func TestCloseWithBusyWorkersDoesNotDeadlock(t *testing.T) {
	// 全ワーカーがジョブ実行中でも、通知を先に全部送るので join が詰まらない
	p := New(4)

	release := make(chan struct{})
	for range 4 {
		p.Execute(func() {
			<-release
		})
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		close(release)
	}()
	closeWithin(t, p, 2*time.Second)
}

func TestExecuteAfterClosePanics(t *testing.T) {
	p := New(2)
	p.Close()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrPoolClosed)
	}()
	p.Execute(func() {})
}

func TestExecuteWrapsQueueError(t *testing.T) {
	p := New(2)
	// 送信側だけを閉じると、ワーカーは受信エラーで終了する
	p.sender.Close()
	defer p.Close()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok)
		assert.ErrorIs(t, err, ErrPoolClosed)
		assert.True(t, errors.Is(err, queue.ErrClosed))
		assert.Equal(t, uint64(0), p.Metrics().SubmittedJobs())
	}()
	p.Execute(func() {})
}

func TestExecuteNilJobPanics(t *testing.T) {
	p := New(1)
	defer p.Close()

	assert.PanicsWithValue(t, ErrNilJob, func() {
		p.Execute(nil)
	})
}

func TestConcurrentExecuteStress(t *testing.T) {
	const (
		numWorkers   = 4
		numProducers = 10
		jobsEach     = 100
	)
	p := New(numWorkers)

	var counter atomic.Int64
	var wg sync.WaitGroup
	for range numProducers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobsEach {
				p.Execute(func() {
					counter.Add(1)
				})
			}
		}()
	}
	wg.Wait()
	p.Close()

	assert.Equal(t, int64(numProducers*jobsEach), counter.Load())
	snap := p.Metrics().Snapshot()
	assert.Equal(t, uint64(numProducers*jobsEach), snap.SubmittedJobs)
	assert.Equal(t, uint64(numProducers*jobsEach), snap.CompletedJobs)
	assert.Equal(t, uint64(0), snap.PendingJobs)
}

func TestRecoveredPanicKeepsWorkerAlive(t *testing.T) {
	bus := events.NewBus()
	sub := bus.SubscribeBuffered(100)

	p, err := NewWithConfig(Config{Size: 1, RecoverPanics: true, EventBus: bus})
	require.NoError(t, err)

	var ran atomic.Bool
	p.Execute(func() {
		panic("boom")
	})
	p.Execute(func() {
		ran.Store(true)
	})
	p.Close()

	assert.True(t, ran.Load(), "worker died after a panicking job")
	assert.Equal(t, uint64(1), p.Metrics().FailedJobs())
	assert.Equal(t, uint64(1), p.Metrics().CompletedJobs())

	bus.Close()
	var panicked []events.Event
	for e := range sub {
		if e.Type == events.EventJobPanicked {
			panicked = append(panicked, e)
		}
	}
	require.Len(t, panicked, 1)
	assert.Contains(t, panicked[0].Data.Error, "boom")
	assert.NotEmpty(t, panicked[0].JobID)
}

func TestJobEventsCarrySameID(t *testing.T) {
	bus := events.NewBus()
	sub := bus.SubscribeBuffered(100)

	p, err := NewWithConfig(Config{Size: 1, EventBus: bus})
	require.NoError(t, err)
	p.Execute(func() {})
	p.Close()
	bus.Close()

	var started, finished string
	for e := range sub {
		switch e.Type {
		case events.EventJobStarted:
			started = e.JobID
		case events.EventJobFinished:
			finished = e.JobID
		}
	}
	require.NotEmpty(t, started)
	assert.Equal(t, started, finished)
}

func TestMessageKindString(t *testing.T) {
	assert.Equal(t, "NewJob", KindNewJob.String())
	assert.Equal(t, "Terminate", KindTerminate.String())
	assert.Equal(t, "Unknown", MessageKind(7).String())
	assert.Equal(t, "Running", StateRunning.String())
	assert.Equal(t, "Terminated", StateTerminated.String())
}

func TestExecuteRacingCloseNeverLosesJobs(t *testing.T) {
	for round := 0; round < 50; round++ {
		p := New(2)

		var accepted, ran atomic.Int64
		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					r := recover()
					err, ok := r.(error)
					if !ok || !errors.Is(err, ErrPoolClosed) {
						t.Errorf("expected ErrPoolClosed panic, got %v", r)
					}
				}()
				for {
					p.Execute(func() { ran.Add(1) })
					accepted.Add(1)
				}
			}()
		}

		time.Sleep(time.Duration(round%5) * 100 * time.Microsecond)
		p.Close()
		wg.Wait()

		// Execute が返ったジョブは全て Close が返る前に実行されている
		require.Equal(t, accepted.Load(), ran.Load(), "round %d", round)
		assert.Equal(t, 0, p.QueueLen(), "round %d", round)
	}
}
