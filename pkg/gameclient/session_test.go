package gameclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI simula o game-service em memória para os testes de sessão
type fakeAPI struct {
	mu sync.Mutex

	active *Guess
	score  int64

	resolveCalls int
	resolveErr   error
	placeErr     error
}

func (f *fakeAPI) PlaceGuess(_ context.Context, userID, direction string, currentPrice float64) (Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return Guess{}, f.placeErr
	}
	g := Guess{
		UserID:     userID,
		ID:         "g-1",
		Direction:  direction,
		StartPrice: currentPrice,
		CreatedAt:  1_700_000_000_000,
		DeadlineAt: 1_700_000_060_000,
	}
	f.active = &g
	return g, nil
}

func (f *fakeAPI) ActiveGuess(_ context.Context, _ string) (*Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return nil, nil
	}
	g := *f.active
	return &g, nil
}

func (f *fakeAPI) Resolve(_ context.Context, _, guessID string, currentPrice float64) (ResolveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.resolveErr != nil {
		return ResolveResult{}, f.resolveErr
	}
	if f.active == nil || f.active.ID != guessID {
		return ResolveResult{}, ErrNotFound
	}
	correct := guessCorrect(f.active.Direction, f.active.StartPrice, currentPrice)
	if correct {
		f.score++
	} else {
		f.score--
	}
	res := ResolveResult{
		IsCorrect:  correct,
		Score:      f.score,
		StartPrice: f.active.StartPrice,
		EndPrice:   currentPrice,
		Direction:  f.active.Direction,
	}
	f.active = nil
	return res, nil
}

func (f *fakeAPI) Score(_ context.Context, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.score, nil
}

func newTestSession(api *fakeAPI, nowMs int64) (*Session, *int64) {
	clock := nowMs
	s := NewSession(zap.NewNop(), api, "u-1").WithClock(func() time.Time {
		return time.UnixMilli(clock)
	})
	return s, &clock
}

func TestSession_PlaceAppliesOptimisticThenConfirmed(t *testing.T) {
	api := &fakeAPI{}
	s, _ := newTestSession(api, 1_700_000_000_000)

	g, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)
	assert.Equal(t, "g-1", g.ID)

	p := s.State()
	require.NotNil(t, p.Active)
	assert.Equal(t, "g-1", p.Active.ID)
	assert.False(t, p.Stale)
}

func TestSession_PlaceFailureInvalidatesAndRefetches(t *testing.T) {
	api := &fakeAPI{placeErr: ErrAlreadyActive, score: 4}
	s, _ := newTestSession(api, 1_700_000_000_000)

	_, err := s.Place(context.Background(), "up", 50000)
	require.ErrorIs(t, err, ErrAlreadyActive)

	// o refetch traz a verdade do servidor em vez de adivinhar o estado anterior
	p := s.State()
	assert.False(t, p.Stale)
	assert.Equal(t, int64(4), p.Score)
	assert.Nil(t, p.Active)
}

func TestSession_TickBeforeDeadlineDoesNothing(t *testing.T) {
	api := &fakeAPI{}
	s, _ := newTestSession(api, 1_700_000_000_000)
	_, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)

	s.Tick(context.Background(), 51000)

	assert.Equal(t, 0, api.resolveCalls)
	assert.NotNil(t, s.State().Active)
}

func TestSession_TickSkipsUnchangedPrice(t *testing.T) {
	api := &fakeAPI{}
	s, clock := newTestSession(api, 1_700_000_000_000)
	_, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)

	*clock = 1_700_000_060_001 // deadline vencido

	s.Tick(context.Background(), 50000)
	assert.Equal(t, 0, api.resolveCalls, "unchanged price must never auto-resolve")

	// assim que o preço se move, o mesmo tick resolve
	s.Tick(context.Background(), 50001)
	assert.Equal(t, 1, api.resolveCalls)
}

func TestSession_AutoResolveFiresExactlyOnce(t *testing.T) {
	api := &fakeAPI{}
	s, clock := newTestSession(api, 1_700_000_000_000)
	_, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)

	*clock = 1_700_000_060_001

	s.Tick(context.Background(), 51000)
	s.Tick(context.Background(), 51200)
	s.Tick(context.Background(), 51300)

	assert.Equal(t, 1, api.resolveCalls)

	p := s.State()
	assert.Nil(t, p.Active)
	assert.Equal(t, int64(1), p.Score)
	assert.False(t, p.Stale, "session must reconcile after resolving")
}

func TestSession_TransportFailureAllowsRetry(t *testing.T) {
	api := &fakeAPI{resolveErr: errors.New("connection reset")}
	s, clock := newTestSession(api, 1_700_000_000_000)
	_, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)

	*clock = 1_700_000_060_001

	s.Tick(context.Background(), 51000)
	require.Equal(t, 1, api.resolveCalls)

	// o servidor ainda tem o palpite ativo; a guarda foi liberada e o
	// próximo tick repete a chamada
	api.mu.Lock()
	api.resolveErr = nil
	api.mu.Unlock()

	s.Tick(context.Background(), 51000)
	assert.Equal(t, 2, api.resolveCalls)
	assert.Equal(t, int64(1), s.State().Score)
}

func TestSession_LostRaceReconcilesQuietly(t *testing.T) {
	api := &fakeAPI{resolveErr: ErrConflict, score: 9}
	s, clock := newTestSession(api, 1_700_000_000_000)
	_, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)

	// outra aba/chamada resolveu primeiro
	api.mu.Lock()
	api.active = nil
	api.mu.Unlock()

	*clock = 1_700_000_060_001
	s.Tick(context.Background(), 51000)

	p := s.State()
	assert.Nil(t, p.Active)
	assert.Equal(t, int64(9), p.Score, "server score wins over the optimistic delta")
	assert.False(t, p.Stale)
}

func TestSession_ConcurrentTicksResolveOnce(t *testing.T) {
	api := &fakeAPI{}
	s, clock := newTestSession(api, 1_700_000_000_000)
	_, err := s.Place(context.Background(), "up", 50000)
	require.NoError(t, err)

	*clock = 1_700_000_060_001

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Tick(context.Background(), 51000)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, api.resolveCalls)
	assert.Equal(t, int64(1), s.State().Score)
}
