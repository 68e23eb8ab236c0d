// Package queue provides an unbounded FIFO channel with one producer side
// and any number of attached receivers.
//
// Send never blocks. Recv blocks until a message is available and hands it
// to exactly one receiver; concurrent receivers are serialized by a single
// mutex so no message is duplicated or dropped.
//
// # Basic Usage
//
//	q := queue.New[string]()
//	rx := q.Receiver()
//	defer rx.Close()
//
//	_ = q.Send("hello")
//	msg, err := rx.Recv()
//
// # Disconnection
//
// Send fails with ErrNoReceivers once every receiver has been closed, and
// with ErrClosed after Close. Recv keeps draining pending messages after
// Close and only then reports ErrClosed.
package queue
