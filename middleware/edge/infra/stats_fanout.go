package infra

import (
	"context"
	"errors"

	"edge-gateway/middleware/edge/domain"
)

// FanoutStats repassa o evento para todos os sinks e junta os erros.
type FanoutStats []domain.StatsStore

func (f FanoutStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
