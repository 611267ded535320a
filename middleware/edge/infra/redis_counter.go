package infra

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/redis/go-redis/v9"
)

// consumeScript é a janela fixa inteira dentro do Redis, então o
// ler-comparar-incrementar é atômico entre todas as instâncias.
// Tempos em milissegundos unix.
var consumeScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call('HMGET', key, 'count', 'reset_at')
local count = tonumber(data[1])
local reset_at = tonumber(data[2])

if count == nil or reset_at == nil or now >= reset_at then
  reset_at = now + window
  redis.call('HSET', key, 'count', 1, 'reset_at', reset_at)
  redis.call('PEXPIREAT', key, reset_at)
  return {1, 1, reset_at}
end

if count >= limit then
  return {0, count, reset_at}
end

count = redis.call('HINCRBY', key, 'count', 1)
return {1, count, reset_at}
`)

// RedisCounterStore implementa domain.CounterStore num Redis compartilhado.
// Cada chave é um hash {count, reset_at} que expira junto com a janela.
type RedisCounterStore struct {
	rdb    redis.Cmdable
	prefix string
}

type RedisCounterOption func(*RedisCounterStore)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisCounterStore(rdb redis.Cmdable, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{rdb: rdb, prefix: "edge:ratelimit"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) key(k domain.Key) string {
	return s.prefix + ":" + string(k)
}

// Consume implementa domain.CounterStore.
func (s *RedisCounterStore) Consume(ctx context.Context, key domain.Key, limit int, window time.Duration, now time.Time) (domain.Usage, bool, error) {
	res, err := consumeScript.Run(ctx, s.rdb, []string{s.key(key)},
		int64(limit), window.Milliseconds(), now.UnixMilli(),
	).Int64Slice()
	if err != nil {
		return domain.Usage{}, false, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if len(res) != 3 {
		return domain.Usage{}, false, fmt.Errorf("%w: unexpected script reply %v", domain.ErrStoreUnavailable, res)
	}

	return domain.Usage{Count: int(res[1]), ResetAt: time.UnixMilli(res[2])}, res[0] == 1, nil
}

func (s *RedisCounterStore) Get(ctx context.Context, key domain.Key) (domain.Usage, bool, error) {
	vals, err := s.rdb.HMGet(ctx, s.key(key), "count", "reset_at").Result()
	if err != nil {
		return domain.Usage{}, false, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return domain.Usage{}, false, nil
	}

	count, err1 := strconv.Atoi(fmt.Sprint(vals[0]))
	resetMS, err2 := strconv.ParseInt(fmt.Sprint(vals[1]), 10, 64)
	if err1 != nil || err2 != nil {
		return domain.Usage{}, false, fmt.Errorf("%w: corrupted entry %s", domain.ErrStoreUnavailable, key)
	}
	return domain.Usage{Count: count, ResetAt: time.UnixMilli(resetMS)}, true, nil
}

func (s *RedisCounterStore) Set(ctx context.Context, key domain.Key, u domain.Usage) error {
	k := s.key(key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, "count", u.Count, "reset_at", u.ResetAt.UnixMilli())
		pipe.PExpireAt(ctx, k, u.ResetAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}
