package events

import (
	"errors"
	"testing"
	"time"
)

func TestNewBus(t *testing.T) {
	bus := NewBus()
	if bus == nil {
		t.Fatal("expected non-nil bus")
	}
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", bus.SubscriberCount())
	}
}

func TestBusSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.SubscribeBuffered(4)
	if bus.SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}
	if cap(ch2) != 4 {
		t.Errorf("expected buffer 4, got %d", cap(ch2))
	}

	bus.Unsubscribe(ch1)
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
	if _, ok := <-ch1; ok {
		t.Error("expected unsubscribed channel to be closed")
	}

	// Unknown channel is a no-op
	bus.Unsubscribe(make(chan Event))
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", bus.SubscriberCount())
	}
}

func TestBusPublishMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish(NewJobStartedEvent(2, "job-1"))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventJobStarted {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventJobStarted, received.Type)
			}
			if received.WorkerID != 2 || received.JobID != "job-1" {
				t.Errorf("subscriber %d: unexpected event %+v", i, received)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestBusPublishNonBlocking(t *testing.T) {
	bus := NewBus()
	ch := bus.SubscribeBuffered(1)

	bus.Publish(NewWorkerStartedEvent(0))
	bus.Publish(NewWorkerStartedEvent(1))
	bus.Publish(NewWorkerStartedEvent(2))

	if bus.Dropped() != 2 {
		t.Errorf("expected 2 dropped events, got %d", bus.Dropped())
	}

	select {
	case e := <-ch:
		if e.WorkerID != 0 {
			t.Errorf("expected first event to be kept, got worker %d", e.WorkerID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for first event")
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()

	ch := bus.Subscribe()
	bus.Close()

	if bus.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", bus.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
}

func TestEventCreation(t *testing.T) {
	t.Run("JobFinished", func(t *testing.T) {
		e := NewJobFinishedEvent(1, "abc", 250*time.Millisecond)
		if e.Type != EventJobFinished {
			t.Errorf("expected %s, got %s", EventJobFinished, e.Type)
		}
		if e.Data.Duration != "250ms" {
			t.Errorf("expected 250ms, got %s", e.Data.Duration)
		}
	})

	t.Run("JobPanicked", func(t *testing.T) {
		e := NewJobPanickedEvent(3, "abc", errors.New("boom"))
		if e.Data.Error != "boom" {
			t.Errorf("expected boom, got %s", e.Data.Error)
		}
		if NewJobPanickedEvent(3, "abc", nil).Data.Error != "" {
			t.Error("expected empty error for nil")
		}
	})

	t.Run("Shutdown", func(t *testing.T) {
		start := NewShutdownStartedEvent(4)
		if start.WorkerID != -1 || start.Data.Workers != 4 {
			t.Errorf("unexpected shutdown started event %+v", start)
		}
		done := NewShutdownCompletedEvent(4, time.Second)
		if done.Type != EventShutdownCompleted || done.Data.Duration != "1s" {
			t.Errorf("unexpected shutdown completed event %+v", done)
		}
	})

	t.Run("Worker", func(t *testing.T) {
		if NewTerminateReceivedEvent(5).Type != EventTerminateReceived {
			t.Error("expected terminate_received")
		}
		stopped := NewWorkerStoppedEvent(5, errors.New("queue: closed"))
		if stopped.Type != EventWorkerStopped || stopped.Data.Error != "queue: closed" {
			t.Errorf("unexpected worker stopped event %+v", stopped)
		}
	})
}
