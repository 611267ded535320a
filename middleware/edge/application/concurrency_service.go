package application

import (
	"context"
	"time"

	"edge-gateway/middleware/edge/domain"
)

// ConcurrencyService limita requisições em voo até o upstream, com timeout
// de espera. Não sabe nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Slot é uma vaga adquirida. Release deve ser chamado exatamente uma vez.
type Slot struct {
	Release func()
	Waited  time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx da requisição encerrar.
//   - AcquireTimeout > 0: desiste depois do timeout.
//
// Com ok=false nenhuma vaga foi adquirida e Release é no-op.
func (s ConcurrencyService) Acquire(ctx context.Context) (Slot, bool) {
	if s.Pool == nil {
		return Slot{Release: func() {}}, true
	}

	start := time.Now()
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(ctx)
	if !ok {
		return Slot{Release: func() {}, Waited: time.Since(start)}, false
	}
	return Slot{Release: release, Waited: time.Since(start)}, true
}
