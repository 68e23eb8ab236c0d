package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendWithoutReceivers(t *testing.T) {
	q := New[int]()

	err := q.Send(1)
	require.ErrorIs(t, err, ErrNoReceivers)
	assert.Equal(t, 0, q.Len())
}

func TestSendRecvFIFO(t *testing.T) {
	q := New[int]()
	rx := q.Receiver()
	defer rx.Close()

	for i := range 10 {
		require.NoError(t, q.Send(i))
	}
	assert.Equal(t, 10, q.Len())

	for i := range 10 {
		v, err := rx.Recv()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestRecvBlocksUntilSend(t *testing.T) {
	q := New[string]()
	rx := q.Receiver()
	defer rx.Close()

	got := make(chan string, 1)
	go func() {
		v, err := rx.Recv()
		if err == nil {
			got <- v
		}
	}()

	select {
	case <-got:
		t.Fatal("Recv returned before any message was sent")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, q.Send("hello"))

	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Recv")
	}
}

func TestReceiverCloseDetaches(t *testing.T) {
	q := New[int]()
	rx1 := q.Receiver()
	rx2 := q.Receiver()
	assert.Equal(t, 2, q.Receivers())

	rx1.Close()
	rx1.Close() // idempotent
	assert.Equal(t, 1, q.Receivers())
	require.NoError(t, q.Send(1))

	rx2.Close()
	assert.Equal(t, 0, q.Receivers())
	require.ErrorIs(t, q.Send(2), ErrNoReceivers)
}

func TestCloseDrainsPendingThenFails(t *testing.T) {
	q := New[int]()
	rx := q.Receiver()
	defer rx.Close()

	require.NoError(t, q.Send(1))
	require.NoError(t, q.Send(2))
	q.Close()

	require.ErrorIs(t, q.Send(3), ErrClosed)

	v, err := rx.Recv()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = rx.Recv()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = rx.Recv()
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseWithAppendsFinalMessages(t *testing.T) {
	q := New[int]()
	rx := q.Receiver()
	defer rx.Close()

	require.NoError(t, q.Send(1))
	require.NoError(t, q.CloseWith(-1, -2))

	// 閉じた後の Send は final の後ろに積まれない
	require.ErrorIs(t, q.Send(3), ErrClosed)
	require.ErrorIs(t, q.CloseWith(-3), ErrClosed)

	for _, want := range []int{1, -1, -2} {
		v, err := rx.Recv()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	_, err := rx.Recv()
	require.ErrorIs(t, err, ErrClosed)
}

func TestCloseWakesBlockedReceivers(t *testing.T) {
	q := New[int]()

	const numReceivers = 4
	var wg sync.WaitGroup
	errs := make(chan error, numReceivers)
	for range numReceivers {
		rx := q.Receiver()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer rx.Close()
			_, err := rx.Recv()
			errs <- err
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receivers were not woken by Close")
	}

	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrClosed)
	}
}

func TestConcurrentReceiversNoDuplicates(t *testing.T) {
	q := New[int]()

	const numReceivers = 8
	const numMessages = 5000

	seen := make([]int, numMessages)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range numReceivers {
		rx := q.Receiver()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer rx.Close()
			for {
				v, err := rx.Recv()
				if err != nil {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}

	var producers sync.WaitGroup
	for p := range 4 {
		producers.Add(1)
		go func() {
			defer producers.Done()
			for i := p; i < numMessages; i += 4 {
				if err := q.Send(i); err != nil {
					t.Errorf("send %d: %v", i, err)
				}
			}
		}()
	}
	producers.Wait()
	q.Close()
	wg.Wait()

	for i, n := range seen {
		if n != 1 {
			t.Fatalf("message %d received %d times", i, n)
		}
	}
}
