package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"edge-gateway/middleware/edge"
)

type team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type analysis struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

var teams = []team{
	{ID: "1", Name: "Alpha"},
	{ID: "2", Name: "Bravo"},
}

func newRouter(opts edge.Options) (http.Handler, error) {
	mw, err := edge.Middleware(opts)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(mw)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/_next/static/*", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("/* asset */"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/teams", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, teams)
		})
		r.Get("/teams/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			for _, t := range teams {
				if t.ID == id {
					writeJSON(w, http.StatusOK, t)
					return
				}
			}
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "team not found"})
		})
		r.Get("/players", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []string{})
		})
		r.Post("/analyze", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusAccepted, analysis{ID: "a-1", Status: "queued"})
		})
		r.Get("/analysis/{id}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, analysis{ID: chi.URLParam(req, "id"), Status: "done"})
		})
	})
	return r, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
