package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
)

type healthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Breaker string `json:"breaker,omitempty"`
}

type statsResponse struct {
	Total  infra.Counters            `json:"total"`
	ByRule map[string]infra.Counters `json:"by_rule"`
	ByKey  map[string]infra.Counters `json:"by_key,omitempty"`
	// Shared é o agregado de todas as instâncias, quando RATE_STATS_ENABLED.
	Shared *infra.RedisStatsSnapshot `json:"shared,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

// newAdminRouter expõe /metrics, /healthz e /stats numa porta separada do tráfego.
func newAdminRouter(reg *prometheus.Registry, store domain.CounterStore, stats statsSinks) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok", Store: storeMemory}
		switch s := store.(type) {
		case *infra.BreakerStore:
			resp.Store = storeRedis
			resp.Breaker = s.State().String()
		case *infra.TokenBucketStore:
			resp.Store = algoTokenBucket
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		resp := statsResponse{
			Total:  stats.memory.Total(),
			ByRule: stats.memory.ByRule(),
			ByKey:  stats.memory.ByKey(),
		}
		if stats.shared != nil {
			snap, err := stats.shared.Snapshot(req.Context())
			if err != nil {
				resp.Error = err.Error()
			} else {
				resp.Shared = &snap
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
