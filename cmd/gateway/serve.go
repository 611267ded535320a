package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/infra"
	"edge-gateway/middleware/edge/policy"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway (pipeline + reverse proxy) and the admin server",
		Long: `Sobe o reverse proxy para UPSTREAM_URL atrás do pipeline de admissão,
e o servidor de administração (/metrics, /healthz, /stats) em METRICS_ADDR.

Configuração via ambiente; veja LISTEN_ADDR, RATE_STORE, RATE_ALGORITHM,
REDIS_ADDR, CONCURRENCY_MAX, EDGE_VERBOSE e LOG_LEVEL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if flags.policyFile != "" {
				cfg.policyFile = flags.policyFile
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(parent context.Context, cfg config) error {
	logger := newLogger(cfg.logLevel, cfg.logFormat, os.Stderr)
	log.Logger = logger

	pol, err := policy.Load(cfg.policyFile)
	if err != nil {
		return err
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var rdb *redis.Client
	if cfg.needsRedis() {
		rdb = newRedisClient(ctx, cfg, logger)
		defer func() { _ = rdb.Close() }()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := buildStore(ctx, cfg, rdb, logger)
	stats := buildStats(cfg, reg, rdb)

	dispatcher, err := edge.New(edge.Options{
		Policy:  pol,
		Store:   store,
		Stats:   stats.fanout,
		Locator: infra.HeaderLocator{TrustXForwardedFor: cfg.trustXFF},
		Logger:  &logger,
		Verbose: cfg.verbose,
	})
	if err != nil {
		return err
	}

	upstream := newProxy(target, logger)
	upstream = edge.ConcurrencyMiddleware(edge.ConcurrencyOptions{
		Max:            cfg.concurrencyMax,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: cfg.concurrencyTimeout,
		Stats:          stats.fanout,
		Logger:         &logger,
	})(upstream)
	h := dispatcher.Wrap(upstream)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	admin := &http.Server{
		Addr:              cfg.metricsAddr,
		Handler:           newAdminRouter(reg, store, stats),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = admin.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", cfg.metricsAddr).Msg("admin server error")
		}
	}()

	logger.Info().
		Str("addr", cfg.listenAddr).
		Str("upstream", target.String()).
		Str("admin", cfg.metricsAddr).
		Msg("gateway listening")
	logger.Info().
		Str("store", cfg.rateStore).
		Str("algorithm", cfg.rateAlgorithm).
		Int("rules", len(pol.Rules)).
		Bool("trust_xff", cfg.trustXFF).
		Bool("verbose", cfg.verbose).
		Msg("rate limit")
	logger.Info().
		Int("max", cfg.concurrencyMax).
		Dur("acquire_timeout", cfg.concurrencyTimeout).
		Msg("concurrency")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	logger.Info().Msg("gateway stopped")
	return nil
}
