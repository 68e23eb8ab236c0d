// Package httpd serves HTTP on top of a thread pool.
//
// ConnServer accepts raw TCP connections and hands each one to the pool as
// a job. The job reads one request, answers with an embedded page and
// closes the connection:
//
//	GET /       200 hello page
//	GET /sleep  200 hello page after SleepDelay
//	anything    404 page
//
// A slow /sleep request occupies one worker only, so other connections are
// still answered while idle workers remain. MaxConns caps the number of
// connections held open at once, which also bounds how many connection
// jobs can wait in the queue.
//
// Server is the admin surface:
//
//	GET /api/status   worker states and queue length
//	GET /api/metrics  metrics snapshot as JSON
//	GET /api/presets  scenario presets
//	GET /metrics      Prometheus exposition
//	    /ws           pool lifecycle events over WebSocket
package httpd
