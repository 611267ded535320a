package application

import (
	"context"
	"fmt"
	"time"

	"edge-gateway/middleware/edge/domain"
)

// RateLimiter concentra a regra de janela fixa por (identidade, regra).
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// A atomicidade do ler-comparar-incrementar fica a cargo do CounterStore.
type RateLimiter struct {
	Store domain.CounterStore
}

// CheckAndConsume consome uma requisição da janela corrente.
//
// Se o store falhar, devolve uma decisão permissiva junto com o erro: quem
// chama decide se registra e segue (o pipeline segue).
func (l RateLimiter) CheckAndConsume(ctx context.Context, identity string, rule domain.Rule, now time.Time) (domain.Decision, error) {
	open := domain.Decision{
		Allowed:   true,
		RuleID:    rule.ID,
		Limit:     rule.MaxRequests,
		Remaining: rule.MaxRequests,
		ResetAt:   now.Add(rule.Window),
	}
	if l.Store == nil {
		return open, nil
	}

	key := domain.NewKey(identity, rule.ID)
	u, ok, err := l.Store.Consume(ctx, key, rule.MaxRequests, rule.Window, now)
	if err != nil {
		return open, fmt.Errorf("consume %s: %w", key, err)
	}

	dec := domain.Decision{
		Allowed: ok,
		RuleID:  rule.ID,
		Limit:   rule.MaxRequests,
		ResetAt: u.ResetAt,
	}
	if !ok {
		dec.RetryAfter = u.ResetAt.Sub(now)
		if dec.RetryAfter < 0 {
			dec.RetryAfter = 0
		}
		return dec, nil
	}

	dec.Remaining = rule.MaxRequests - u.Count
	if dec.Remaining < 0 {
		dec.Remaining = 0
	}
	return dec, nil
}
