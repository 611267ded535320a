package edge

import (
	"net/http"
	"time"

	"edge-gateway/middleware/edge/domain"
)

const botRootCacheControl = "public, max-age=3600, s-maxage=86400"

// Annotator escreve os headers de diagnóstico e segurança.
// Set sempre, nunca Add: reanotar a mesma resposta não duplica valores.
type Annotator struct {
	IDs domain.IDGenerator
}

func (Annotator) Security(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")
}

// Trace marca a requisição com um ID novo e o instante de chegada.
func (a Annotator) Trace(h http.Header, now time.Time) {
	if a.IDs != nil {
		h.Set("X-Request-ID", a.IDs.NewID())
	}
	h.Set("X-Timestamp", isoTimestamp(now))
}

func (Annotator) Region(h http.Header, loc domain.Location) {
	h.Set("X-Region", loc.Region)
	h.Set("X-Country", loc.Country)
}

func (Annotator) RateLimit(h http.Header, dec domain.Decision) {
	h.Set("X-RateLimit-Limit", formatInt(dec.Limit))
	h.Set("X-RateLimit-Remaining", formatInt(dec.Remaining))
	h.Set("X-RateLimit-Reset", formatInt64(unixCeil(dec.ResetAt)))
}

func (Annotator) Bot(h http.Header, rootPath bool) {
	h.Set("X-Bot-Detected", "true")
	if rootPath {
		h.Set("Cache-Control", botRootCacheControl)
	}
}

func (Annotator) Timing(h http.Header, elapsed time.Duration) {
	h.Set("Server-Timing", "total;dur="+formatInt64(elapsed.Milliseconds()))
}
