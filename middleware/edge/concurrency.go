package edge

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"
)

type ConcurrencyOptions struct {
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Stats          domain.StatsStore
	Logger         *zerolog.Logger
}

// ConcurrencyMiddleware limita requisições em voo. Max <= 0 desliga o limite.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slot, ok := svc.Acquire(r.Context())
			if !ok {
				logger.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Dur("waited", slot.Waited).
					Int("max", opts.Max).
					Msg("concurrency limit reached")
				if opts.Stats != nil {
					_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
						Outcome:  domain.OutcomeOverloaded,
						Method:   r.Method,
						Path:     r.URL.Path,
						At:       time.Now(),
						Duration: slot.Waited,
					})
				}
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}
			defer slot.Release()

			next.ServeHTTP(w, r)
		})
	}
}
