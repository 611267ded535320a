package domain

import (
	"context"
	"time"
)

// Outcome é o desfecho terminal de uma requisição no pipeline.
type Outcome string

const (
	OutcomeBypass     Outcome = "bypass"
	OutcomeForbidden  Outcome = "forbidden"
	OutcomeThrottled  Outcome = "throttled"
	OutcomePreflight  Outcome = "preflight"
	OutcomePassed     Outcome = "passed"
	OutcomeOverloaded Outcome = "overloaded"
)

// StatsEvent representa um desfecho do pipeline.
//
// Cuidado com cardinalidade: Key e Path sem controle podem explodir o número
// de séries/chaves numa base como Redis/Prometheus.
type StatsEvent struct {
	Key     Key
	RuleID  string
	Outcome Outcome
	Allowed bool

	Method string
	Path   string

	At       time.Time
	Duration time.Duration
}

// StatsStore é a estratégia de persistência das estatísticas.
// O pipeline trata erro como best-effort (não derruba request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
