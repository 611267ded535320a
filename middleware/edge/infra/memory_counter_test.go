package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"edge-gateway/middleware/edge/domain"
)

func TestMemoryCounterStore_FixedWindow(t *testing.T) {
	s := NewMemoryCounterStore(WithCleanupEvery(0))
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)
	key := domain.NewKey("10.0.0.1", "teams")

	for i := 1; i <= 3; i++ {
		u, ok, err := s.Consume(ctx, key, 3, time.Minute, t0.Add(time.Duration(i)*time.Second))
		if err != nil || !ok {
			t.Fatalf("expected request %d allowed, ok=%v err=%v", i, ok, err)
		}
		if u.Count != i {
			t.Fatalf("expected count %d, got %d", i, u.Count)
		}
		if !u.ResetAt.Equal(t0.Add(time.Second + time.Minute)) {
			t.Fatalf("window must be anchored at first request, got %s", u.ResetAt)
		}
	}

	u, ok, _ := s.Consume(ctx, key, 3, time.Minute, t0.Add(59*time.Second))
	if ok {
		t.Fatalf("expected 4th request denied")
	}
	if u.Count != 3 {
		t.Fatalf("denied request must not increment, got %d", u.Count)
	}

	// exatamente em resetAt a janela recomeça
	u, ok, _ = s.Consume(ctx, key, 3, time.Minute, t0.Add(61*time.Second))
	if !ok || u.Count != 1 {
		t.Fatalf("expected fresh window with count 1, ok=%v count=%d", ok, u.Count)
	}
	if !u.ResetAt.Equal(t0.Add(121 * time.Second)) {
		t.Fatalf("unexpected reset %s", u.ResetAt)
	}
}

func TestMemoryCounterStore_ConcurrentConsumeIsAtomic(t *testing.T) {
	s := NewMemoryCounterStore(WithShardCount(4), WithCleanupEvery(0))
	const limit = 100
	now := time.Now()
	key := domain.NewKey("unknown", "default")

	var admitted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 2*limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok, _ := s.Consume(context.Background(), key, limit, time.Minute, now); ok {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != limit {
		t.Fatalf("expected exactly %d admitted, got %d", limit, got)
	}
	u, _, _ := s.Get(context.Background(), key)
	if u.Count != limit {
		t.Fatalf("expected count %d, got %d", limit, u.Count)
	}
}

func TestMemoryCounterStore_GetSet(t *testing.T) {
	s := NewMemoryCounterStore(WithCleanupEvery(0))
	ctx := context.Background()
	key := domain.Key("k")

	if _, ok, _ := s.Get(ctx, key); ok {
		t.Fatalf("expected missing key")
	}

	reset := time.Now().Add(time.Minute)
	if err := s.Set(ctx, key, domain.Usage{Count: 7, ResetAt: reset}); err != nil {
		t.Fatalf("set: %v", err)
	}
	u, ok, _ := s.Get(ctx, key)
	if !ok || u.Count != 7 || !u.ResetAt.Equal(reset) {
		t.Fatalf("unexpected usage %+v ok=%v", u, ok)
	}
}

func TestMemoryCounterStore_CleanupRemovesExpiredWindows(t *testing.T) {
	s := NewMemoryCounterStore(WithCleanupEvery(0))
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	_, _, _ = s.Consume(ctx, "short", 1, time.Second, t0)
	_, _, _ = s.Consume(ctx, "long", 1, time.Hour, t0)

	if removed := s.Cleanup(t0.Add(time.Second)); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", s.Len())
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Fatalf("expected live window to survive cleanup")
	}
}

func TestMemoryCounterStore_JanitorStopsWithContext(t *testing.T) {
	s := NewMemoryCounterStore(WithCleanupEvery(5 * time.Millisecond))
	_, _, _ = s.Consume(context.Background(), "k", 1, time.Millisecond, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	s.StartJanitor(ctx)
	defer cancel()

	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("janitor did not evict expired entry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
