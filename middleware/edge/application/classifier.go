package application

import (
	"errors"
	"fmt"
	"strings"

	"edge-gateway/middleware/edge/domain"
)

// RouteClassifier escolhe a regra de throttling de um path.
// A tabela é estática: montada uma vez e nunca alterada em runtime.
type RouteClassifier struct {
	rules []domain.Rule
	def   domain.Rule
}

// NewRouteClassifier valida a tabela: IDs únicos, valores positivos e
// exatamente uma regra default (sem prefixo).
func NewRouteClassifier(rules []domain.Rule) (*RouteClassifier, error) {
	c := &RouteClassifier{}
	seen := make(map[string]bool, len(rules))
	defaults := 0

	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: duplicated id %q", domain.ErrInvalidRule, r.ID)
		}
		seen[r.ID] = true

		if r.IsDefault() {
			defaults++
			c.def = r
			continue
		}
		c.rules = append(c.rules, r)
	}
	if defaults != 1 {
		return nil, errors.Join(domain.ErrInvalidRule, fmt.Errorf("expected exactly one default rule, got %d", defaults))
	}
	return c, nil
}

// Classify devolve a regra de maior prefixo que casa com o path, ou a default.
// Em empate de tamanho vence a que aparece primeiro na tabela.
func (c *RouteClassifier) Classify(path string) domain.Rule {
	best := c.def
	bestLen := -1
	for _, r := range c.rules {
		if len(r.RoutePrefix) > bestLen && strings.HasPrefix(path, r.RoutePrefix) {
			best = r
			bestLen = len(r.RoutePrefix)
		}
	}
	return best
}

// Rules devolve a tabela completa, default por último.
func (c *RouteClassifier) Rules() []domain.Rule {
	out := make([]domain.Rule, 0, len(c.rules)+1)
	out = append(out, c.rules...)
	return append(out, c.def)
}
