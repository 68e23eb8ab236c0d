// Package events provides lifecycle notifications for pool workers and jobs.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventWorkerStarted is emitted when a worker goroutine begins its loop
	EventWorkerStarted EventType = "worker_started"
	// EventJobStarted is emitted when a worker takes a job off the queue
	EventJobStarted EventType = "job_started"
	// EventJobFinished is emitted when a job returns normally
	EventJobFinished EventType = "job_finished"
	// EventJobPanicked is emitted when a job panics and the panic is recovered
	EventJobPanicked EventType = "job_panicked"
	// EventTerminateReceived is emitted when a worker takes a terminate message
	EventTerminateReceived EventType = "terminate_received"
	// EventWorkerStopped is emitted when a worker loop has exited
	EventWorkerStopped EventType = "worker_stopped"
	// EventShutdownStarted is emitted before terminate messages are sent
	EventShutdownStarted EventType = "shutdown_started"
	// EventShutdownCompleted is emitted after every worker has been joined
	EventShutdownCompleted EventType = "shutdown_completed"
)

// Event represents a pool lifecycle event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	WorkerID  int       `json:"worker_id"`
	JobID     string    `json:"job_id,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Duration string `json:"duration,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewWorkerStartedEvent creates a worker started event
func NewWorkerStartedEvent(workerID int) Event {
	return Event{
		Type:      EventWorkerStarted,
		Timestamp: time.Now(),
		WorkerID:  workerID,
	}
}

// NewJobStartedEvent creates a job started event
func NewJobStartedEvent(workerID int, jobID string) Event {
	return Event{
		Type:      EventJobStarted,
		Timestamp: time.Now(),
		WorkerID:  workerID,
		JobID:     jobID,
	}
}

// NewJobFinishedEvent creates a job finished event
func NewJobFinishedEvent(workerID int, jobID string, elapsed time.Duration) Event {
	return Event{
		Type:      EventJobFinished,
		Timestamp: time.Now(),
		WorkerID:  workerID,
		JobID:     jobID,
		Data: EventData{
			Duration: elapsed.String(),
		},
	}
}

// NewJobPanickedEvent creates a job panicked event
func NewJobPanickedEvent(workerID int, jobID string, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventJobPanicked,
		Timestamp: time.Now(),
		WorkerID:  workerID,
		JobID:     jobID,
		Data: EventData{
			Error: errMsg,
		},
	}
}

// NewTerminateReceivedEvent creates a terminate received event
func NewTerminateReceivedEvent(workerID int) Event {
	return Event{
		Type:      EventTerminateReceived,
		Timestamp: time.Now(),
		WorkerID:  workerID,
	}
}

// NewWorkerStoppedEvent creates a worker stopped event
func NewWorkerStoppedEvent(workerID int, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventWorkerStopped,
		Timestamp: time.Now(),
		WorkerID:  workerID,
		Data: EventData{
			Error: errMsg,
		},
	}
}

// NewShutdownStartedEvent creates a shutdown started event.
// WorkerID is -1 for pool-level events.
func NewShutdownStartedEvent(workers int) Event {
	return Event{
		Type:      EventShutdownStarted,
		Timestamp: time.Now(),
		WorkerID:  -1,
		Data: EventData{
			Workers: workers,
		},
	}
}

// NewShutdownCompletedEvent creates a shutdown completed event
func NewShutdownCompletedEvent(workers int, elapsed time.Duration) Event {
	return Event{
		Type:      EventShutdownCompleted,
		Timestamp: time.Now(),
		WorkerID:  -1,
		Data: EventData{
			Duration: elapsed.String(),
			Workers:  workers,
		},
	}
}
