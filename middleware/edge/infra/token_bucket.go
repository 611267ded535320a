package infra

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"edge-gateway/middleware/edge/domain"

	"golang.org/x/time/rate"
)

// TokenBucketStore é a alternativa opcional à janela fixa: um token bucket
// (x/time/rate) por chave, com burst = limite e reposição de limite/janela.
// Não tem o pico de 2x na virada da janela, mas não reproduz a janela fixa.
//
// Usage.Count é o número de tokens consumidos (limite - tokens disponíveis).
type TokenBucketStore struct {
	mu           sync.Mutex
	entries      map[domain.Key]*bucketEntry
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	limit    int
	window   time.Duration
	lastSeen time.Time
}

type TokenBucketOption func(*TokenBucketStore)

func WithBucketIdleTTL(d time.Duration) TokenBucketOption {
	return func(s *TokenBucketStore) { s.idleTTL = d }
}

func WithBucketCleanupEvery(d time.Duration) TokenBucketOption {
	return func(s *TokenBucketStore) { s.cleanupEvery = d }
}

func NewTokenBucketStore(opts ...TokenBucketOption) *TokenBucketStore {
	s := &TokenBucketStore{
		entries:      make(map[domain.Key]*bucketEntry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newBucket(limit int, window time.Duration) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
}

// Consume implementa domain.CounterStore.
func (s *TokenBucketStore) Consume(_ context.Context, key domain.Key, limit int, window time.Duration, now time.Time) (domain.Usage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok || ent.limit != limit || ent.window != window {
		ent = &bucketEntry{lim: newBucket(limit, window), limit: limit, window: window}
		s.entries[key] = ent
	}
	ent.lastSeen = now

	allowed := ent.lim.AllowN(now, 1)
	return usageAt(ent, now, allowed), allowed, nil
}

func (s *TokenBucketStore) Get(_ context.Context, key domain.Key) (domain.Usage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return domain.Usage{}, false, nil
	}
	return usageAt(ent, time.Now(), true), true, nil
}

// Set recria o bucket já com u.Count tokens consumidos. Só funciona para chaves
// conhecidas, porque limite e janela vêm do último Consume.
func (s *TokenBucketStore) Set(_ context.Context, key domain.Key, u domain.Usage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("token bucket: unknown key %s", key)
	}
	now := time.Now()
	ent.lim = newBucket(ent.limit, ent.window)
	if u.Count > 0 {
		ent.lim.AllowN(now, min(u.Count, ent.limit))
	}
	ent.lastSeen = now
	return nil
}

// usageAt traduz o estado do bucket para Usage. Para negado, ResetAt é quando
// o próximo token fica disponível; para permitido, quando o bucket enche.
func usageAt(ent *bucketEntry, now time.Time, allowed bool) domain.Usage {
	tokens := ent.lim.TokensAt(now)
	perSec := float64(ent.lim.Limit())

	count := ent.limit - int(math.Floor(tokens))
	count = max(0, min(count, ent.limit))

	missing := float64(ent.limit) - tokens
	if !allowed {
		missing = 1 - tokens
	}
	wait := time.Duration(0)
	if missing > 0 && perSec > 0 {
		wait = time.Duration(math.Ceil(missing / perSec * float64(time.Second)))
	}
	return domain.Usage{Count: count, ResetAt: now.Add(wait)}
}

// Cleanup remove buckets ociosos há mais de idleTTL.
func (s *TokenBucketStore) Cleanup(now time.Time) {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

func (s *TokenBucketStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, s.Cleanup)
}
