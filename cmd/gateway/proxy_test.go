package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/infra"
)

type seqIDs struct{}

func (seqIDs) NewID() string { return "req-42" }

func newGatewayHandler(t *testing.T, upstream http.Handler) http.Handler {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	logger := zerolog.New(io.Discard)
	d, err := edge.New(edge.Options{
		Store:  infra.NewMemoryCounterStore(infra.WithCleanupEvery(0)),
		IDs:    seqIDs{},
		Logger: &logger,
	})
	require.NoError(t, err)
	return d.Wrap(newProxy(target, logger))
}

func TestProxy_EdgeHeadersWinOverUpstream(t *testing.T) {
	h := newGatewayHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Server-Timing", "db;dur=3")
		w.Header().Set("Vary", "Accept-Encoding")
		w.Header().Set("X-Upstream", "yes")
		_, _ = io.WriteString(w, "ok")
	}))

	r := httptest.NewRequest(http.MethodGet, "http://gateway/api/teams", nil)
	r.RemoteAddr = "203.0.113.7:40000"
	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Firefox/128.0")
	r.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"DENY"}, w.Header().Values("X-Frame-Options"))
	assert.Equal(t, []string{"http://localhost:3000"}, w.Header().Values("Access-Control-Allow-Origin"))
	assert.Len(t, w.Header().Values("Server-Timing"), 1)
	assert.ElementsMatch(t, []string{"Origin", "Accept-Encoding"}, w.Header().Values("Vary"))
	assert.Equal(t, "yes", w.Header().Get("X-Upstream"))
	assert.Equal(t, "ok", w.Body.String())
}

func TestProxy_ForwardsDiagnosticHeadersUpstream(t *testing.T) {
	seen := make(chan http.Header, 1)
	h := newGatewayHandler(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Clone()
	}))

	r := httptest.NewRequest(http.MethodGet, "http://gateway/teams", nil)
	r.RemoteAddr = "203.0.113.7:40000"
	r.Header.Set("User-Agent", "Googlebot/2.1 (+http://www.google.com/bot.html)")
	r.Header.Set(infra.HeaderCountry, "BR")
	r.Header.Set("X-Country", "XX")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	got := <-seen
	assert.Equal(t, "req-42", got.Get("X-Request-ID"))
	assert.Equal(t, "true", got.Get("X-Bot-Detected"))
	assert.Equal(t, "BR", got.Get("X-Country"))
	assert.Equal(t, w.Header().Get("X-Region"), got.Get("X-Region"))
}
