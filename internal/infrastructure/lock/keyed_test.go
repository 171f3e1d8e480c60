package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	t.Parallel()

	k := NewKeyed()
	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := k.Lock(context.Background(), "c1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Fatalf("critical section entered by %d holders", maxSeen.Load())
	}
	if k.Size() != 0 {
		t.Fatalf("entries leaked: %d", k.Size())
	}
}

func TestKeyedIndependentKeys(t *testing.T) {
	t.Parallel()

	k := NewKeyed()
	unlockA, err := k.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := k.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("different key should not block: %v", err)
	}
	unlockB()
}

func TestKeyedRespectsContext(t *testing.T) {
	t.Parallel()

	k := NewKeyed()
	unlock, err := k.Lock(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(ctx, "c1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	unlock()
	unlock()
	if k.Size() != 0 {
		t.Fatalf("entries leaked: %d", k.Size())
	}
}
