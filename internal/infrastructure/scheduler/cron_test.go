package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestIntervalSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	s := NewIntervalScheduler(5*time.Millisecond, true)

	if err := s.Start(context.Background(), func(time.Time) { calls.Add(1) }); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", calls.Load())
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Fatalf("job ran after Stop")
	}
}

func TestIntervalSchedulerDisabled(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(0, true)
	ran := false
	if err := s.Start(context.Background(), func(time.Time) { ran = true }); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if ran {
		t.Fatalf("disabled scheduler must not run the job")
	}
}
