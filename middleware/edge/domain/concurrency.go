package domain

import "context"

// SlotPool limita requisições em voo até o upstream.
//
// Acquire bloqueia até conseguir uma vaga ou até o ctx encerrar.
// O release devolvido deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
