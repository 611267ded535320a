package infra

import (
	"context"
	"testing"
	"time"

	"edge-gateway/middleware/edge/domain"
)

func TestTokenBucketStore_ConsumeRefillsOverTime(t *testing.T) {
	s := NewTokenBucketStore(WithBucketCleanupEvery(0))
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)
	key := domain.Key("k")

	for i := 1; i <= 2; i++ {
		u, ok, _ := s.Consume(ctx, key, 2, time.Minute, t0)
		if !ok {
			t.Fatalf("expected request %d allowed", i)
		}
		if u.Count != i {
			t.Fatalf("expected count %d, got %d", i, u.Count)
		}
	}

	u, ok, _ := s.Consume(ctx, key, 2, time.Minute, t0)
	if ok {
		t.Fatalf("expected third immediate request denied")
	}
	// 2 tokens/min => próximo token em 30s
	if got := u.ResetAt.Sub(t0); got != 30*time.Second {
		t.Fatalf("expected next token in 30s, got %s", got)
	}

	if _, ok, _ := s.Consume(ctx, key, 2, time.Minute, t0.Add(30*time.Second)); !ok {
		t.Fatalf("expected request allowed after refill")
	}
}

func TestTokenBucketStore_SetUnknownKey(t *testing.T) {
	s := NewTokenBucketStore(WithBucketCleanupEvery(0))
	if err := s.Set(context.Background(), "nope", domain.Usage{Count: 1}); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestTokenBucketStore_CleanupRemovesIdleEntries(t *testing.T) {
	s := NewTokenBucketStore(WithBucketIdleTTL(time.Minute), WithBucketCleanupEvery(0))
	ctx := context.Background()
	t0 := time.Unix(1_700_000_000, 0)

	_, _, _ = s.Consume(ctx, "k", 1, time.Second, t0)
	s.Cleanup(t0.Add(2 * time.Minute))

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("expected bucket to be evicted")
	}
}
