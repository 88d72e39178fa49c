package gameclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// api é o subconjunto do Client usado pela sessão
type api interface {
	PlaceGuess(ctx context.Context, userID, direction string, currentPrice float64) (Guess, error)
	ActiveGuess(ctx context.Context, userID string) (*Guess, error)
	Resolve(ctx context.Context, userID, guessID string, currentPrice float64) (ResolveResult, error)
	Score(ctx context.Context, userID string) (int64, error)
}

// Session mantém a projeção otimista de um usuário e dispara a
// resolução automática quando o deadline local vence.
//
// Chamadas concorrentes (polling de preço, polling de palpite,
// resolução) são seguras: todo acesso à projeção passa pelo mutex e a
// resolução automática é disparada no máximo uma vez por guessId.
type Session struct {
	Log *zap.Logger

	api    api
	userID string

	mu   sync.Mutex
	proj Projection
	// resolveStarted garante exatamente um disparo automático por palpite
	resolveStarted map[string]bool

	now func() time.Time
}

func NewSession(log *zap.Logger, c api, userID string) *Session {
	return &Session{
		Log:            log,
		api:            c,
		userID:         userID,
		proj:           NewProjection(userID),
		resolveStarted: make(map[string]bool),
		now:            time.Now,
	}
}

// WithClock substitui o relógio, usado em testes
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// State retorna um snapshot da projeção corrente
func (s *Session) State() Projection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj
}

// Place cria um palpite com escrita otimista imediata.
// A projeção recebe um palpite provisório antes da confirmação; em
// caso de falha a projeção é invalidada e refetchada em vez de tentar
// reconstruir o estado anterior.
func (s *Session) Place(ctx context.Context, direction string, currentPrice float64) (Guess, error) {
	provisional := Guess{
		UserID:     s.userID,
		Direction:  direction,
		StartPrice: currentPrice,
		CreatedAt:  s.now().UnixMilli(),
	}
	s.mu.Lock()
	s.proj = s.proj.ApplyGuessPlaced(provisional)
	s.mu.Unlock()

	g, err := s.api.PlaceGuess(ctx, s.userID, direction, currentPrice)
	if err != nil {
		s.mu.Lock()
		s.proj = s.proj.Invalidate()
		s.mu.Unlock()
		s.refresh(ctx)
		return Guess{}, err
	}

	s.mu.Lock()
	s.proj = s.proj.ApplyGuessPlaced(g)
	s.mu.Unlock()
	return g, nil
}

// Tick avalia a projeção contra o relógio e o preço corrente e, se o
// deadline do palpite ativo venceu, dispara a resolução automática.
//
// Regras do disparo:
//   - nunca com preço igual ao startPrice (direção ambígua)
//   - nunca mais de uma vez por guessId, mesmo sob ticks concorrentes
//   - após qualquer desfecho (sucesso, NotFound, Conflict ou falha de
//     rede) a projeção é reconciliada com o servidor
func (s *Session) Tick(ctx context.Context, currentPrice float64) {
	s.mu.Lock()
	g := s.proj.Active
	if g == nil || g.ID == "" {
		s.mu.Unlock()
		return
	}
	if s.now().UnixMilli() < g.DeadlineAt {
		s.mu.Unlock()
		return
	}
	if currentPrice == g.StartPrice {
		// sem movimento não há veredito; aguarda o próximo tick
		s.mu.Unlock()
		return
	}
	if s.resolveStarted[g.ID] {
		s.mu.Unlock()
		return
	}
	s.resolveStarted[g.ID] = true
	guessID := g.ID
	s.proj = s.proj.ApplyOptimisticResolution(currentPrice)
	s.mu.Unlock()

	if _, err := s.api.Resolve(ctx, s.userID, guessID, currentPrice); err != nil {
		// NotFound/Conflict: outra chamada chegou primeiro e o palpite
		// já foi consumido; o refresh abaixo traz a verdade do servidor
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) {
			s.Log.Warn("auto resolve failed", zap.String("guessId", guessID), zap.Error(err))
			// falha de transporte: libera a guarda para que um tick
			// futuro possa repetir a chamada com segurança
			s.mu.Lock()
			delete(s.resolveStarted, guessID)
			s.mu.Unlock()
		}
	}
	s.refresh(ctx)
}

// Refresh reconcilia a projeção com a verdade do servidor
func (s *Session) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *Session) refresh(ctx context.Context) error {
	active, err := s.api.ActiveGuess(ctx, s.userID)
	if err != nil {
		s.invalidate()
		return err
	}
	score, err := s.api.Score(ctx, s.userID)
	if err != nil {
		s.invalidate()
		return err
	}
	s.mu.Lock()
	s.proj = s.proj.ApplyServerState(active, score)
	// poda guardas de palpites que não existem mais no servidor
	for id := range s.resolveStarted {
		if active == nil || id != active.ID {
			delete(s.resolveStarted, id)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) invalidate() {
	s.mu.Lock()
	s.proj = s.proj.Invalidate()
	s.mu.Unlock()
}
