package infra

import (
	"context"
	"sync"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/cespare/xxhash/v2"
)

// MemoryCounterStore implementa domain.CounterStore em memória.
//
// A tabela é particionada em shards; cada shard tem seu próprio mutex, então
// ler-comparar-incrementar é atômico por chave sem serializar o processo inteiro.
// Não coordena entre instâncias: para isso use RedisCounterStore.
type MemoryCounterStore struct {
	shards       []*counterShard
	cleanupEvery time.Duration
}

type counterShard struct {
	mu      sync.Mutex
	entries map[domain.Key]*domain.Usage
}

type MemoryOption func(*MemoryCounterStore)

func WithShardCount(n int) MemoryOption {
	return func(s *MemoryCounterStore) {
		if n > 0 {
			s.shards = make([]*counterShard, n)
		}
	}
}

// WithCleanupEvery define o intervalo do janitor. Zero desliga a limpeza e a
// tabela cresce sem limite durante a vida do processo.
func WithCleanupEvery(d time.Duration) MemoryOption {
	return func(s *MemoryCounterStore) { s.cleanupEvery = d }
}

func NewMemoryCounterStore(opts ...MemoryOption) *MemoryCounterStore {
	s := &MemoryCounterStore{
		shards:       make([]*counterShard, 32),
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.shards {
		s.shards[i] = &counterShard{entries: make(map[domain.Key]*domain.Usage)}
	}
	return s
}

func (s *MemoryCounterStore) shard(key domain.Key) *counterShard {
	return s.shards[xxhash.Sum64String(string(key))%uint64(len(s.shards))]
}

func (s *MemoryCounterStore) Get(_ context.Context, key domain.Key) (domain.Usage, bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	u, ok := sh.entries[key]
	if !ok {
		return domain.Usage{}, false, nil
	}
	return *u, true, nil
}

func (s *MemoryCounterStore) Set(_ context.Context, key domain.Key, u domain.Usage) error {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cp := u
	sh.entries[key] = &cp
	return nil
}

// Consume implementa domain.CounterStore.
func (s *MemoryCounterStore) Consume(_ context.Context, key domain.Key, limit int, window time.Duration, now time.Time) (domain.Usage, bool, error) {
	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	u, ok := sh.entries[key]
	if !ok || !now.Before(u.ResetAt) {
		u = &domain.Usage{Count: 1, ResetAt: now.Add(window)}
		sh.entries[key] = u
		return *u, true, nil
	}
	if u.Count >= limit {
		return *u, false, nil
	}
	u.Count++
	return *u, true, nil
}

// Cleanup remove entradas cuja janela já terminou. Remover uma entrada vencida
// é equivalente ao reset que o próximo Consume faria.
func (s *MemoryCounterStore) Cleanup(now time.Time) int {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, u := range sh.entries {
			if !now.Before(u.ResetAt) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *MemoryCounterStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.entries)
		sh.mu.Unlock()
	}
	return n
}

// StartJanitor inicia uma goroutine que limpa janelas vencidas periodicamente.
// Pare cancelando o contexto.
func (s *MemoryCounterStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.cleanupEvery, func(now time.Time) { s.Cleanup(now) })
}

// DoneContext é o mínimo necessário para aceitar context.Context no janitor.
type DoneContext interface {
	Done() <-chan struct{}
}

func startJanitor(ctx DoneContext, every time.Duration, fn func(time.Time)) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				fn(now)
			}
		}
	}()
}
