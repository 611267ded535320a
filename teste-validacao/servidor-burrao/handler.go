package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// maxDelay evita que um ?delay= errado segure conexões por minutos.
const maxDelay = 10 * time.Second

// echoed são os headers que o gateway encaminha e o upstream devolve no corpo.
var echoed = []string{"X-Forwarded-For", "X-Request-ID", "X-Region", "X-Country", "X-Bot-Detected"}

type echoResponse struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Delay   string            `json:"delay,omitempty"`
}

func newHandler(logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/showTela", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<h1>Tela do Sistema</h1><p>Requisição recebida com sucesso!</p>")
		logger.Info().Str("path", r.URL.Path).Msg("alguém acessou o endpoint")
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		resp := echoResponse{Method: r.Method, Path: r.URL.Path, Headers: map[string]string{}}
		if v := r.URL.Query().Get("delay"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				http.Error(w, "invalid delay", http.StatusBadRequest)
				return
			}
			d = min(d, maxDelay)
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
			resp.Delay = d.String()
		}
		for _, h := range echoed {
			if v := r.Header.Get(h); v != "" {
				resp.Headers[h] = v
			}
		}

		logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Str("delay", resp.Delay).Msg("echo")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}
