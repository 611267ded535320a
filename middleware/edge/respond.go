package edge

import (
	"encoding/json"
	"io"
	"net/http"

	"edge-gateway/middleware/edge/domain"
)

type throttledBody struct {
	Error      string `json:"error"`
	Detail     string `json:"detail"`
	RetryAfter int64  `json:"retryAfter"`
}

func (d *Dispatcher) forbid(w http.ResponseWriter, r *http.Request, st admission, reason, url string) {
	d.log.Warn().
		Str("reason", reason).
		Str("ip", st.loc.IP).
		Str("user_agent", truncate(st.ua, maxLoggedUserAgent)).
		Str("url", url).
		Msg("request rejected by security filter")

	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Robots-Tag", "noindex")
	w.WriteHeader(http.StatusForbidden)
	_, _ = io.WriteString(w, "Forbidden")

	d.record(r, st, domain.OutcomeForbidden, false)
}

func (d *Dispatcher) throttle(w http.ResponseWriter, r *http.Request, st admission, dec domain.Decision) {
	retry := ceilSeconds(dec.RetryAfter)

	h := w.Header()
	h.Set("Retry-After", formatInt64(retry))
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(throttledBody{
		Error:      http.StatusText(http.StatusTooManyRequests),
		Detail:     "Rate limit exceeded for " + dec.RuleID + ". Try again in " + formatInt64(retry) + " seconds.",
		RetryAfter: retry,
	})

	d.record(r, st, domain.OutcomeThrottled, false)
}

// responseWriter guarda status e bytes escritos para o log de performance.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

func (rw *responseWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Unwrap deixa http.ResponseController alcançar Flush/Hijack do writer original.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
