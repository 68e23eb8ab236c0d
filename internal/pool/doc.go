// Package pool provides a fixed-size thread pool.
//
// A ThreadPool owns a set of long-lived worker goroutines that all pull
// messages from one shared FIFO queue. A message either carries a job or
// tells exactly one worker to terminate.
//
// # Basic Usage
//
//	p := pool.New(4) // panics if size <= 0
//	defer p.Close()
//
//	for i := 0; i < 100; i++ {
//	    p.Execute(func() {
//	        // do work
//	    })
//	}
//
// # Shutdown
//
// Close first sends one terminate message per worker, then waits for every
// worker to exit. Jobs queued before Close still run, because they are
// ahead of the terminate messages in the queue. There is no timeout: a job
// that never returns blocks Close forever.
//
// The terminate messages are queued and the queue sealed in one step, so a
// job is either queued ahead of them and runs, or Execute panics with
// ErrPoolClosed. Execute after Close panics the same way.
//
// # Panicking jobs
//
// With Config.RecoverPanics (the default) a panicking job is logged and
// counted as failed and its worker keeps serving. Without it the panic
// propagates and takes the process down.
package pool
