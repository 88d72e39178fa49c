package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Expirer abstrai a remoção de palpites expirados do armazenamento
type Expirer interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper remove palpites abandonados cujo marcador de expiração já passou
// O deadline de resolução do palpite não é afetado: a varredura só limpa
// registros que nenhum cliente voltou a resolver
type Sweeper struct {
	Log   *zap.Logger
	Store Expirer

	OnSwept func(n int64) // métricas
	OnError func()        // métricas

	now func() time.Time
}

func New(log *zap.Logger, store Expirer) *Sweeper {
	return &Sweeper{Log: log, Store: store, now: time.Now}
}

// WithClock substitui o relógio, usado em testes
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep executa uma varredura e retorna o número de palpites removidos
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC()
	n, err := s.Store.DeleteExpired(ctx, cutoff)
	if err != nil {
		s.Log.Error("sweep failed", zap.Error(err))
		if s.OnError != nil {
			s.OnError()
		}
		return 0, err
	}
	if n > 0 {
		s.Log.Info("expired guesses removed", zap.Int64("count", n))
	}
	if s.OnSwept != nil {
		s.OnSwept(n)
	}
	return n, nil
}
