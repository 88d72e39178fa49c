package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/game-service/dto"
	"github.com/radieske/btc-guess-platform/internal/game-service/game"
	"github.com/radieske/btc-guess-platform/internal/game-service/price"
	"github.com/radieske/btc-guess-platform/internal/game-service/repo"
	"github.com/radieske/btc-guess-platform/internal/leaderboard"
	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// Store define as operações de persistência usadas pelo handler HTTP.
// Implementado por repo.Postgres e repo.Memory.
type Store interface {
	Create(ctx context.Context, g game.Guess, expiresAt time.Time) error
	GetActive(ctx context.Context, userID string) (*game.Guess, error)
	Resolve(ctx context.Context, userID, guessID string, endPrice float64) (*game.Resolution, error)
	GetOrCreateScore(ctx context.Context, userID string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]game.Resolution, error)
}

// Publisher emite eventos de resolução (best effort, fora da transação)
type Publisher interface {
	PublishGuessResolved(ctx context.Context, e events.GuessResolved) error
}

// Ranking lê o topo do placar
type Ranking interface {
	Top(ctx context.Context, n int) ([]leaderboard.Entry, error)
}

// Server expõe a API HTTP do jogo de palpites
type Server struct {
	log    *zap.Logger
	store  Store
	price  *price.Validator // opcional
	publ   Publisher        // opcional
	rank   Ranking          // opcional
	window time.Duration    // prazo até o palpite poder ser resolvido
	expiry time.Duration    // idade máxima até o sweep
	now    func() time.Time
}

// NewServer instancia o servidor HTTP do game-service
func NewServer(log *zap.Logger, store Store, v *price.Validator, publ Publisher, rank Ranking, window, expiry time.Duration) *Server {
	return &Server{
		log:    log,
		store:  store,
		price:  v,
		publ:   publ,
		rank:   rank,
		window: window,
		expiry: expiry,
		now:    time.Now,
	}
}

// WithClock substitui o relógio (testes)
func (s *Server) WithClock(now func() time.Time) *Server {
	s.now = now
	return s
}

// Router retorna o mux HTTP com as rotas da API do jogo
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/guesses", s.createGuess)        // POST
	mux.HandleFunc("/guesses/active", s.activeGuess) // GET ?userId=...
	mux.HandleFunc("/guesses/resolve", s.resolve)    // POST
	mux.HandleFunc("/guesses/history", s.history)    // GET ?userId=...&limit=...
	mux.HandleFunc("/score", s.score)                // GET ?userId=...
	mux.HandleFunc("/leaderboard", s.topLeaderboard) // GET ?limit=...
	return mux
}

// createGuess registra um novo palpite, garantindo no máximo um ativo por usuário
func (s *Server) createGuess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req dto.CreateGuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	dir, ok := game.ParseDirection(req.Direction)
	if req.UserID == "" || !ok || req.CurrentPrice <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid payload")
		return
	}

	// checagem prévia; a escrita condicional fecha a janela restante
	if _, err := s.store.GetActive(r.Context(), req.UserID); err == nil {
		writeErr(w, http.StatusBadRequest, "already have an active guess")
		return
	} else if err != repo.ErrNotFound {
		writeErr(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	if err := s.price.Check(r.Context(), req.CurrentPrice); err != nil {
		writeErr(w, http.StatusBadRequest, "price too far from feed")
		return
	}

	now := s.now()
	g := game.NewGuess(req.UserID, dir, req.CurrentPrice, now, s.window)
	if err := s.store.Create(r.Context(), g, now.Add(s.expiry)); err != nil {
		if err == repo.ErrAlreadyActive {
			writeErr(w, http.StatusBadRequest, "already have an active guess")
			return
		}
		s.log.Error("create guess failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "failed to create guess")
		return
	}

	writeJSON(w, http.StatusOK, dto.CreateGuessResponse{
		GuessID:    g.ID,
		Direction:  string(g.Direction),
		StartPrice: g.StartPrice,
		CreatedAt:  g.CreatedAt,
		DeadlineAt: g.DeadlineAt,
	})
}

// activeGuess retorna o palpite ativo do usuário (null quando não há)
func (s *Server) activeGuess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeErr(w, http.StatusBadRequest, "userId required")
		return
	}

	g, err := s.store.GetActive(r.Context(), userID)
	if err == repo.ErrNotFound {
		writeJSON(w, http.StatusOK, dto.ActiveGuessResponse{ActiveGuess: nil})
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	writeJSON(w, http.StatusOK, dto.ActiveGuessResponse{ActiveGuess: &dto.Guess{
		UserID:     g.UserID,
		ID:         g.ID,
		Direction:  string(g.Direction),
		StartPrice: g.StartPrice,
		CreatedAt:  g.CreatedAt,
		DeadlineAt: g.DeadlineAt,
	}})
}

// resolve liquida o palpite contra o preço informado.
// 404: guessId não corresponde ao palpite ativo (resolvido, expirado ou inexistente)
// 409: a transação condicional perdeu a corrida; nenhum ponto foi aplicado
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req dto.ResolveGuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" || req.GuessID == "" || req.CurrentPrice <= 0 {
		writeErr(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if err := s.price.Check(r.Context(), req.CurrentPrice); err != nil {
		writeErr(w, http.StatusBadRequest, "price too far from feed")
		return
	}

	res, err := s.store.Resolve(r.Context(), req.UserID, req.GuessID, req.CurrentPrice)
	switch err {
	case nil:
	case repo.ErrNotFound:
		writeErr(w, http.StatusNotFound, "active guess not found")
		return
	case repo.ErrConflict:
		writeErr(w, http.StatusConflict, "guess already resolved")
		return
	default:
		s.log.Error("resolve guess failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "failed to resolve guess")
		return
	}

	// evento pós-commit; falha aqui não desfaz a resolução
	if s.publ != nil {
		if err := s.publ.PublishGuessResolved(r.Context(), events.GuessResolved{
			UserID:     req.UserID,
			GuessID:    req.GuessID,
			Direction:  string(res.Guess.Direction),
			Correct:    res.Correct,
			Delta:      res.Delta,
			Score:      res.Score,
			StartPrice: res.Guess.StartPrice,
			EndPrice:   res.EndPrice,
			DurationMs: res.DurationMs(),
		}); err != nil {
			s.log.Warn("publish guess_resolved failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, dto.ResolveGuessResponse{
		IsCorrect:  res.Correct,
		Score:      res.Score,
		StartPrice: res.Guess.StartPrice,
		EndPrice:   res.EndPrice,
		Direction:  string(res.Guess.Direction),
		Duration:   res.DurationMs(),
	})
}

// score retorna (ou cria com zero) a pontuação do usuário
func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeErr(w, http.StatusBadRequest, "userId required")
		return
	}

	score, err := s.store.GetOrCreateScore(r.Context(), userID)
	if err != nil {
		s.log.Error("get score failed", zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "failed to get score")
		return
	}
	writeJSON(w, http.StatusOK, dto.ScoreResponse{UserID: userID, Score: score})
}

// history retorna as resoluções mais recentes do usuário
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeErr(w, http.StatusBadRequest, "userId required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	hist, err := s.store.History(r.Context(), userID, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get history")
		return
	}
	out := make([]dto.HistoryEntry, 0, len(hist))
	for _, h := range hist {
		out = append(out, dto.HistoryEntry{
			GuessID:    h.Guess.ID,
			Direction:  string(h.Guess.Direction),
			StartPrice: h.Guess.StartPrice,
			EndPrice:   h.EndPrice,
			IsCorrect:  h.Correct,
			Delta:      h.Delta,
			ResolvedAt: h.ResolvedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// topLeaderboard retorna as maiores pontuações acumuladas
func (s *Server) topLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.rank == nil {
		writeErr(w, http.StatusServiceUnavailable, "leaderboard unavailable")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	top, err := s.rank.Top(r.Context(), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "failed to get leaderboard")
		return
	}
	out := make([]dto.LeaderboardEntry, 0, len(top))
	for _, e := range top {
		out = append(out, dto.LeaderboardEntry{UserID: e.UserID, Score: e.Score})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr padroniza o corpo de erro
func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
