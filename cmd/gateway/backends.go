package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
)

func newRedisClient(ctx context.Context, cfg config, logger zerolog.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.redisAddr,
		Password: cfg.redisPassword,
		DB:       cfg.redisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		// o breaker cobre a indisponibilidade; só avisa
		logger.Warn().Err(err).Str("addr", cfg.redisAddr).Msg("redis ping failed")
	}
	return rdb
}

// buildStore escolhe o CounterStore. Os janitors param junto com ctx.
func buildStore(ctx context.Context, cfg config, rdb redis.Cmdable, logger zerolog.Logger) domain.CounterStore {
	if cfg.rateAlgorithm == algoTokenBucket {
		tb := infra.NewTokenBucketStore(infra.WithBucketCleanupEvery(cfg.rateCleanupEvery))
		tb.StartJanitor(ctx)
		return tb
	}

	mem := infra.NewMemoryCounterStore(infra.WithCleanupEvery(cfg.rateCleanupEvery))
	mem.StartJanitor(ctx)
	if cfg.rateStore != storeRedis {
		return mem
	}

	// redis compartilhado entre instâncias; memória local quando o circuito abre
	return infra.NewBreakerStore(
		infra.NewRedisCounterStore(rdb, infra.WithCounterPrefix(cfg.redisPrefix)),
		mem,
		infra.WithBreakerLogger(logger),
	)
}

// statsSinks guarda os sinks concretos que o admin também lê.
type statsSinks struct {
	fanout infra.FanoutStats
	memory *infra.MemoryStatsStore
	shared *infra.RedisStatsStore
}

// buildStats monta o fan-out: Prometheus e memória sempre, Redis opcional.
func buildStats(cfg config, reg prometheus.Registerer, rdb redis.Cmdable) statsSinks {
	mem := infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.statsTrackKeys))
	sinks := infra.FanoutStats{
		infra.NewPrometheusStats(reg, "gateway"),
		mem,
	}
	out := statsSinks{memory: mem}
	if cfg.statsEnabled && rdb != nil {
		out.shared = infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.statsPrefix),
			infra.WithStatsTTL(cfg.statsTTL),
			infra.WithStatsBucket(cfg.statsBucket),
			infra.WithStatsTrackKeys(cfg.statsTrackKeys),
		)
		sinks = append(sinks, out.shared)
	}
	out.fanout = sinks
	return out
}
