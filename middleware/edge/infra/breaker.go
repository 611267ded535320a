package infra

import (
	"context"
	"errors"
	"time"

	"edge-gateway/middleware/edge/domain"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerStore protege um store remoto com circuit breaker. Com erro ou
// circuito aberto, a decisão sai do fallback local (por instância), e o
// pipeline nunca espera um Redis fora do ar.
type BreakerStore struct {
	primary  domain.CounterStore
	fallback domain.CounterStore
	cb       *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

type breakerConfig struct {
	name     string
	failures uint32
	timeout  time.Duration
	log      zerolog.Logger
}

type BreakerOption func(*breakerConfig)

// WithBreakerFailures define quantas falhas consecutivas abrem o circuito.
func WithBreakerFailures(n uint32) BreakerOption {
	return func(c *breakerConfig) { c.failures = n }
}

// WithBreakerTimeout define quanto tempo o circuito fica aberto antes de testar de novo.
func WithBreakerTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) { c.timeout = d }
}

func WithBreakerLogger(l zerolog.Logger) BreakerOption {
	return func(c *breakerConfig) { c.log = l }
}

func NewBreakerStore(primary, fallback domain.CounterStore, opts ...BreakerOption) *BreakerStore {
	cfg := breakerConfig{
		name:     "counter-store",
		failures: 5,
		timeout:  30 * time.Second,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &BreakerStore{primary: primary, fallback: fallback, log: cfg.log}
	s.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: 1,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("counter store circuit changed state")
		},
	})
	return s
}

func (s *BreakerStore) State() gobreaker.State { return s.cb.State() }

type consumeResult struct {
	usage   domain.Usage
	allowed bool
}

// Consume implementa domain.CounterStore.
func (s *BreakerStore) Consume(ctx context.Context, key domain.Key, limit int, window time.Duration, now time.Time) (domain.Usage, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		u, ok, err := s.primary.Consume(ctx, key, limit, window, now)
		return consumeResult{usage: u, allowed: ok}, err
	})
	if err == nil {
		r := res.(consumeResult)
		return r.usage, r.allowed, nil
	}

	s.logFailure(err, key)
	if s.fallback == nil {
		return domain.Usage{}, false, err
	}
	return s.fallback.Consume(ctx, key, limit, window, now)
}

func (s *BreakerStore) Get(ctx context.Context, key domain.Key) (domain.Usage, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		u, ok, err := s.primary.Get(ctx, key)
		return consumeResult{usage: u, allowed: ok}, err
	})
	if err == nil {
		r := res.(consumeResult)
		return r.usage, r.allowed, nil
	}

	s.logFailure(err, key)
	if s.fallback == nil {
		return domain.Usage{}, false, err
	}
	return s.fallback.Get(ctx, key)
}

func (s *BreakerStore) Set(ctx context.Context, key domain.Key, u domain.Usage) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.primary.Set(ctx, key, u)
	})
	if err == nil {
		return nil
	}

	s.logFailure(err, key)
	if s.fallback == nil {
		return err
	}
	return s.fallback.Set(ctx, key, u)
}

func (s *BreakerStore) logFailure(err error, key domain.Key) {
	// circuito aberto já foi logado na troca de estado
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.log.Debug().Err(err).Str("key", string(key)).Msg("counter store short-circuited")
		return
	}
	s.log.Error().Err(err).Str("key", string(key)).Msg("counter store failed, using fallback")
}
