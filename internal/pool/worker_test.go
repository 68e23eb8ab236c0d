package pool

import (
	"testing"
	"time"

	"threadpool/internal/metrics"
	"threadpool/internal/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool() *ThreadPool {
	return &ThreadPool{
		config:  Config{RecoverPanics: true},
		metrics: metrics.New(),
	}
}

func TestWorkerTakeHandleOnce(t *testing.T) {
	q := queue.New[Message]()
	w := newWorker(0, q.Receiver(), newTestPool())

	require.NoError(t, q.Send(terminateMessage()))

	h := w.takeHandle()
	require.NotNil(t, h)
	assert.Nil(t, w.takeHandle(), "handle slot must be empty after extraction")

	h.join()
	assert.Equal(t, StateTerminated, w.State())
	assert.Equal(t, 0, q.Receivers(), "worker must detach on exit")
}

func TestWorkerExitsOnReceiveFailure(t *testing.T) {
	q := queue.New[Message]()
	w := newWorker(3, q.Receiver(), newTestPool())
	assert.Equal(t, 3, w.ID())

	q.Close()

	done := make(chan struct{})
	go func() {
		w.takeHandle().join()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after the queue was closed")
	}
	assert.Equal(t, StateTerminated, w.State())
}

func TestWorkerRunsJobsSequentially(t *testing.T) {
	q := queue.New[Message]()
	p := newTestPool()
	w := newWorker(0, q.Receiver(), p)

	var active, maxActive int
	for range 5 {
		require.NoError(t, q.Send(newJobMessage("", func() {
			// このワーカーだけが触るので同期は不要
			active++
			if active > maxActive {
				maxActive = active
			}
			time.Sleep(time.Millisecond)
			active--
		})))
	}
	require.NoError(t, q.Send(terminateMessage()))
	w.takeHandle().join()

	assert.Equal(t, 1, maxActive)
	assert.Equal(t, uint64(5), p.Metrics().CompletedJobs())
}
