package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable indica que o store de contadores não respondeu.
	// O pipeline trata como falha aberta (admite e registra).
	ErrStoreUnavailable = errors.New("counter store unavailable")

	ErrInvalidRule = errors.New("invalid rate limit rule")
)

// DefaultRuleID é o ID da regra sem prefixo que sempre casa.
const DefaultRuleID = "default"

// UnknownIdentity é a identidade compartilhada quando não há IP do cliente.
// Todos os clientes anônimos caem no mesmo bucket.
const UnknownIdentity = "unknown"

// Rule é uma linha da tabela de throttling: prefixo de rota -> N requisições por janela.
type Rule struct {
	ID          string        `yaml:"id"`
	RoutePrefix string        `yaml:"prefix"`
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

func (r Rule) IsDefault() bool { return r.RoutePrefix == "" }

func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.Join(ErrInvalidRule, errors.New("id is required"))
	}
	if r.MaxRequests <= 0 {
		return errors.Join(ErrInvalidRule, errors.New(r.ID+": max_requests must be > 0"))
	}
	if r.Window <= 0 {
		return errors.Join(ErrInvalidRule, errors.New(r.ID+": window must be > 0"))
	}
	return nil
}

type Key string

// NewKey monta a chave composta (identidade, regra).
func NewKey(identity, ruleID string) Key {
	if identity == "" {
		identity = UnknownIdentity
	}
	return Key(identity + "|" + ruleID)
}

// Usage é o estado de uma chave dentro da janela corrente.
type Usage struct {
	Count   int
	ResetAt time.Time
}

// CounterStore é o store chaveado do rate limit.
//
// Consume precisa ser atômico por chave: ler, comparar com o limite e
// incrementar numa única seção crítica (mutex, script Lua, etc).
// Sem isso duas requisições simultâneas podem ver count < limite e passar.
type CounterStore interface {
	Get(ctx context.Context, key Key) (Usage, bool, error)
	Set(ctx context.Context, key Key, u Usage) error
	// Consume aplica a janela fixa: se não há estado ou a janela venceu, reinicia
	// com Count=1; se Count >= limit, nega sem alterar; senão incrementa.
	Consume(ctx context.Context, key Key, limit int, window time.Duration, now time.Time) (Usage, bool, error)
}

// Decision é o resultado de CheckAndConsume, já pronto para virar headers.
type Decision struct {
	Allowed   bool
	RuleID    string
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter só é preenchido quando bloqueado.
	RetryAfter time.Duration
}
