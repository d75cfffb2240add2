package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/buffcal/internal/domain/model"
)

func messageJob(id string) Job {
	return Job{
		Kind:    model.JobMessage,
		Trigger: model.TriggerCreate,
		Message: model.Message{ID: id, Text: "@RendBuff 20:00"},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if err := q.Enqueue(ctx, messageJob("m1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	job := <-q.Dequeue(ctx)
	if job.Message.ID != "m1" {
		t.Errorf("expected m1, got %v", job.Message.ID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"m1", "m2"} {
		if err := q.Enqueue(ctx, messageJob(id)); err != nil {
			t.Errorf("expected enqueue to succeed, got %v", err)
		}
	}

	if err := q.Enqueue(ctx, messageJob("m3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, messageJob("m1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	sweep := Job{Kind: model.JobSweep}
	_ = q.Enqueue(ctx, messageJob("m1"))
	_ = q.Enqueue(ctx, sweep)
	_ = q.Enqueue(ctx, messageJob("m2"))
	_ = q.Close()

	var kinds []string
	for j := range q.Dequeue(ctx) {
		if j.Kind == model.JobSweep {
			kinds = append(kinds, "sweep")
			continue
		}
		kinds = append(kinds, j.Message.ID)
	}

	want := []string{"m1", "sweep", "m2"}
	if fmt.Sprint(kinds) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, kinds)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	numGoroutines := 10
	numJobs := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numJobs; j++ {
				for q.Enqueue(ctx, messageJob(fmt.Sprintf("m%d_%d", id, j))) != nil {
					time.Sleep(time.Millisecond)
				}
			}
			done <- true
		}(i)
	}

	consumed := make(chan string, numGoroutines*numJobs)
	jobs := q.Dequeue(ctx)
	go func() {
		for j := range jobs {
			consumed <- j.Message.ID
		}
	}()

	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	deadline := time.After(2 * time.Second)
	for got := 0; got < numGoroutines*numJobs; got++ {
		select {
		case <-consumed:
		case <-deadline:
			t.Fatalf("expected %d jobs, got %d", numGoroutines*numJobs, got)
		}
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if err := q.Enqueue(ctx, messageJob("m1")); err != nil {
		t.Errorf("expected enqueue to succeed, got %v", err)
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	if err := q.Enqueue(ctx, messageJob("m2")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// Jobs queued before Close are still delivered.
	jobs := q.Dequeue(ctx)
	select {
	case j, ok := <-jobs:
		if !ok || j.Message.ID != "m1" {
			t.Errorf("expected m1 to drain, got %v (ok=%v)", j.Message.ID, ok)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected queued job to be delivered")
	}

	select {
	case _, ok := <-jobs:
		if ok {
			t.Error("expected dequeue channel to be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("expected dequeue channel to be closed within timeout")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected second close to succeed, got error: %v", err)
	}
}
