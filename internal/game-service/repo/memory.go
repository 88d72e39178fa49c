package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radieske/btc-guess-platform/internal/game-service/game"
)

// Memory implementa o mesmo contrato do repositório Postgres inteiro em
// memória, com a mesma semântica condicional de criação e resolução.
// Usado nos testes e para rodar o game-service local sem Postgres.
type Memory struct {
	mu       sync.Mutex
	guesses  map[string]game.Guess
	expires  map[string]time.Time
	scores   map[string]int64
	resolved map[string]map[string]game.Resolution // userID -> guessID -> resolução
	now      func() time.Time
}

// NewMemory cria o repositório em memória; clock injetável via WithClock
func NewMemory() *Memory {
	return &Memory{
		guesses:  make(map[string]game.Guess),
		expires:  make(map[string]time.Time),
		scores:   make(map[string]int64),
		resolved: make(map[string]map[string]game.Resolution),
		now:      time.Now,
	}
}

// WithClock substitui o relógio (testes)
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Create(_ context.Context, g game.Guess, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.guesses[g.UserID]; ok {
		return ErrAlreadyActive
	}
	m.guesses[g.UserID] = g
	m.expires[g.UserID] = expiresAt
	return nil
}

func (m *Memory) GetActive(_ context.Context, userID string) (*game.Guess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guesses[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := g
	return &out, nil
}

func (m *Memory) Resolve(_ context.Context, userID, guessID string, endPrice float64) (*game.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.guesses[userID]
	if !ok {
		return nil, m.classifyMissing(userID, guessID)
	}
	if g.ID != guessID {
		return nil, m.classifyMissing(userID, guessID)
	}

	delete(m.guesses, userID)
	delete(m.expires, userID)

	correct := game.Outcome(g.Direction, g.StartPrice, endPrice)
	delta := game.Delta(correct)
	m.scores[userID] += delta

	r := game.Resolution{
		Guess:      g,
		Correct:    correct,
		Delta:      delta,
		Score:      m.scores[userID],
		EndPrice:   endPrice,
		ResolvedAt: m.now().UnixMilli(),
	}
	if m.resolved[userID] == nil {
		m.resolved[userID] = make(map[string]game.Resolution)
	}
	m.resolved[userID][guessID] = r

	out := r
	return &out, nil
}

// classifyMissing espelha a distinção do Postgres entre NotFound e Conflict
func (m *Memory) classifyMissing(userID, guessID string) error {
	if _, ok := m.resolved[userID][guessID]; ok {
		return ErrConflict
	}
	return ErrNotFound
}

func (m *Memory) GetOrCreateScore(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scores[userID]; !ok {
		m.scores[userID] = 0
	}
	return m.scores[userID], nil
}

func (m *Memory) History(_ context.Context, userID string, limit int) ([]game.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []game.Resolution
	for _, r := range m.resolved[userID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolvedAt > out[j].ResolvedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for userID, exp := range m.expires {
		if !exp.After(now) {
			delete(m.guesses, userID)
			delete(m.expires, userID)
			n++
		}
	}
	return n, nil
}
