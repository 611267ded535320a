package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog"
)

// forwardedHeaders são os headers de diagnóstico do pipeline que também
// seguem na requisição para o upstream.
var forwardedHeaders = []string{"X-Request-ID", "X-Region", "X-Country", "X-Bot-Detected"}

// mergedHeaders não são sobrescritos: o valor do upstream soma ao do pipeline.
var mergedHeaders = map[string]bool{"Vary": true}

type edgeHeadersKey struct{}

// newProxy monta o reverse proxy para o upstream. Os headers que o pipeline
// já escreveu na resposta prevalecem sobre os homônimos vindos do upstream.
func newProxy(target *url.URL, logger zerolog.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)

	director := proxy.Director
	proxy.Director = func(r *http.Request) {
		director(r)
		edge, _ := r.Context().Value(edgeHeadersKey{}).(http.Header)
		for _, name := range forwardedHeaders {
			if v := edge.Get(name); v != "" {
				r.Header.Set(name, v)
			}
		}
	}

	proxy.ModifyResponse = func(res *http.Response) error {
		if res.Request == nil {
			return nil
		}
		edge, _ := res.Request.Context().Value(edgeHeadersKey{}).(http.Header)
		for name := range edge {
			if !mergedHeaders[name] {
				res.Header.Del(name)
			}
		}
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), edgeHeadersKey{}, w.Header().Clone())
		proxy.ServeHTTP(w, r.WithContext(ctx))
	})
}
