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

// RedisStatsStore grava contadores de desfecho em hashes do Redis,
// compartilhados por todas as instâncias do gateway:
//
//	<prefix>:total                 campo = outcome
//	<prefix>:minute:<YYYYMMDDhhmm> campo = outcome (expira em ttl)
//	<prefix>:rule                  campo = <rule>:<outcome>
//	<prefix>:key:<key>             campo = outcome (opcional, expira em ttl)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix    string
	ttl       time.Duration // só séries por minuto e por key; total não expira
	bucket    string        // "minute" (padrão) ou "none"
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

// WithStatsTrackKeys liga os hashes por identidade. Cardinalidade alta: use com ttl.
func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "edge:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) totalKey() string { return s.prefix + ":total" }
func (s *RedisStatsStore) ruleKey() string  { return s.prefix + ":rule" }

func (s *RedisStatsStore) minuteKey(at time.Time) string {
	return s.prefix + ":minute:" + at.UTC().Format("200601021504")
}

func (s *RedisStatsStore) identityKey(k domain.Key) string {
	return s.prefix + ":key:" + string(k)
}

// Record incrementa todos os hashes do evento num único round-trip.
func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	outcome := string(ev.Outcome)
	if outcome == "" {
		outcome = "unknown"
	}

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, s.totalKey(), outcome, 1)
		if s.bucket == "minute" {
			s.incrExpiring(ctx, pipe, s.minuteKey(at), outcome)
		}
		if rule := strings.TrimSpace(ev.RuleID); rule != "" {
			pipe.HIncrBy(ctx, s.ruleKey(), rule+":"+outcome, 1)
		}
		if s.trackKeys && ev.Key != "" {
			s.incrExpiring(ctx, pipe, s.identityKey(ev.Key), outcome)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record stats: %w", err)
	}
	return nil
}

func (s *RedisStatsStore) incrExpiring(ctx context.Context, pipe redis.Pipeliner, key, field string) {
	pipe.HIncrBy(ctx, key, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
}

// RedisStatsSnapshot é a visão agregada de todas as instâncias.
type RedisStatsSnapshot struct {
	Total  map[string]int64            `json:"total"`
	ByRule map[string]map[string]int64 `json:"by_rule"`
}

// Snapshot lê os hashes cumulativos (total e por regra).
func (s *RedisStatsStore) Snapshot(ctx context.Context) (RedisStatsSnapshot, error) {
	snap := RedisStatsSnapshot{Total: map[string]int64{}, ByRule: map[string]map[string]int64{}}

	total, err := s.rdb.HGetAll(ctx, s.totalKey()).Result()
	if err != nil {
		return snap, fmt.Errorf("read totals: %w", err)
	}
	for outcome, v := range total {
		snap.Total[outcome] = parseCounter(v)
	}

	rules, err := s.rdb.HGetAll(ctx, s.ruleKey()).Result()
	if err != nil {
		return snap, fmt.Errorf("read rules: %w", err)
	}
	for field, v := range rules {
		// o id da regra pode conter ":", o outcome nunca
		i := strings.LastIndex(field, ":")
		if i <= 0 {
			continue
		}
		rule, outcome := field[:i], field[i+1:]
		if snap.ByRule[rule] == nil {
			snap.ByRule[rule] = map[string]int64{}
		}
		snap.ByRule[rule][outcome] = parseCounter(v)
	}
	return snap, nil
}

func parseCounter(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
