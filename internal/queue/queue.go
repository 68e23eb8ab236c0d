package queue

import (
	"errors"
	"sync"

	ring "github.com/eapache/queue"
)

var (
	// ErrNoReceivers は受信側が一つも残っていない場合に返される
	ErrNoReceivers = errors.New("queue: no receivers")
	// ErrClosed は送信側が閉じられた後に返される
	ErrClosed = errors.New("queue: closed")
)

// Queue は上限なしの FIFO キュー
type Queue[T any] struct {
	mu        sync.Mutex
	ready     *sync.Cond
	items     *ring.Queue
	receivers int
	closed    bool
}

// New は新しいキューを作成する
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		items: ring.New(),
	}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Send はメッセージをキューに追加する（ブロックしない）
func (q *Queue[T]) Send(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.receivers == 0 {
		return ErrNoReceivers
	}

	q.items.Add(v)
	q.ready.Signal()
	return nil
}

// Close は送信側を閉じ、待機中の受信側を起こす
func (q *Queue[T]) Close() {
	_ = q.CloseWith()
}

// CloseWith は final を末尾に積み、同じロック区間で送信側を閉じる
// 以降の Send は ErrClosed を返すため、final の後ろに何も積まれない
func (q *Queue[T]) CloseWith(final ...T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	for _, v := range final {
		q.items.Add(v)
	}
	q.closed = true
	q.ready.Broadcast()
	return nil
}

// Len は未受信のメッセージ数を返す
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Receivers は接続中の受信側の数を返す
func (q *Queue[T]) Receivers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.receivers
}

// Receiver は新しい受信ハンドルを接続する
func (q *Queue[T]) Receiver() *Receiver[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.receivers++
	return &Receiver[T]{q: q}
}

// Receiver はキューの受信ハンドル
type Receiver[T any] struct {
	q    *Queue[T]
	once sync.Once
}

// Recv はメッセージが届くまでブロックし、先頭の一件を取り出す
func (r *Receiver[T]) Recv() (T, error) {
	q := r.q
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Length() == 0 {
		if q.closed {
			var zero T
			return zero, ErrClosed
		}
		q.ready.Wait()
	}

	return q.items.Remove().(T), nil
}

// Close は受信ハンドルを切断する（複数回呼んでも安全）
func (r *Receiver[T]) Close() {
	r.once.Do(func() {
		r.q.mu.Lock()
		r.q.receivers--
		r.q.mu.Unlock()
	})
}
