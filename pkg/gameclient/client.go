// Package gameclient implementa o cliente do game-service com estado
// otimista local e reconciliação contra a verdade do servidor.
package gameclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Erros mapeados a partir das respostas HTTP do game-service
var (
	ErrAlreadyActive = errors.New("gameclient: user already has an active guess")
	ErrNotFound      = errors.New("gameclient: no matching active guess")
	ErrConflict      = errors.New("gameclient: guess already resolved")
)

// Guess espelha a projeção pública de um palpite ativo do servidor
// CreatedAt e DeadlineAt em epoch ms
type Guess struct {
	UserID     string  `json:"userId"`
	ID         string  `json:"id"`
	Direction  string  `json:"direction"`
	StartPrice float64 `json:"startPrice"`
	CreatedAt  int64   `json:"createdAt"`
	DeadlineAt int64   `json:"deadlineAt"`
}

// ResolveResult espelha a resposta de resolução do servidor
type ResolveResult struct {
	IsCorrect  bool    `json:"isCorrect"`
	Score      int64   `json:"score"`
	StartPrice float64 `json:"startPrice"`
	EndPrice   float64 `json:"endPrice"`
	Direction  string  `json:"direction"`
	Duration   int64   `json:"duration"`
}

type apiError struct {
	Error string `json:"error"`
}

// Client encapsula as chamadas HTTP ao game-service
// O retry de rede fica por conta do resty; chamadas abortadas são
// seguras de repetir porque o servidor responde NotFound/Conflict
// para guessIds já consumidos
type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Client{http: c}
}

// PlaceGuess cria um palpite para o usuário; falha com ErrAlreadyActive
// quando já existe um ativo
func (c *Client) PlaceGuess(ctx context.Context, userID, direction string, currentPrice float64) (Guess, error) {
	var out struct {
		GuessID    string  `json:"guessId"`
		Direction  string  `json:"direction"`
		StartPrice float64 `json:"startPrice"`
		CreatedAt  int64   `json:"createdAt"`
		DeadlineAt int64   `json:"deadlineAt"`
	}
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"userId":       userID,
			"direction":    direction,
			"currentPrice": currentPrice,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/guesses")
	if err != nil {
		return Guess{}, err
	}
	switch resp.StatusCode() {
	case http.StatusCreated, http.StatusOK:
		return Guess{
			UserID:     userID,
			ID:         out.GuessID,
			Direction:  out.Direction,
			StartPrice: out.StartPrice,
			CreatedAt:  out.CreatedAt,
			DeadlineAt: out.DeadlineAt,
		}, nil
	case http.StatusBadRequest:
		if apiErr.Error == "already have an active guess" {
			return Guess{}, ErrAlreadyActive
		}
		return Guess{}, fmt.Errorf("gameclient: create guess rejected: %s", apiErr.Error)
	default:
		return Guess{}, fmt.Errorf("gameclient: create guess: unexpected status %d", resp.StatusCode())
	}
}

// ActiveGuess retorna o palpite ativo do usuário, ou nil quando não há
func (c *Client) ActiveGuess(ctx context.Context, userID string) (*Guess, error) {
	var out struct {
		ActiveGuess *Guess `json:"activeGuess"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("userId", userID).
		SetResult(&out).
		Get("/guesses/active")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("gameclient: active guess: unexpected status %d", resp.StatusCode())
	}
	return out.ActiveGuess, nil
}

// Resolve liquida um palpite contra o preço corrente
// ErrNotFound: o guessId não corresponde ao palpite ativo
// ErrConflict: o palpite já foi resolvido por outra chamada
func (c *Client) Resolve(ctx context.Context, userID, guessID string, currentPrice float64) (ResolveResult, error) {
	var out ResolveResult
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"userId":       userID,
			"guessId":      guessID,
			"currentPrice": currentPrice,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/guesses/resolve")
	if err != nil {
		return ResolveResult{}, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return out, nil
	case http.StatusNotFound:
		return ResolveResult{}, ErrNotFound
	case http.StatusConflict:
		return ResolveResult{}, ErrConflict
	default:
		return ResolveResult{}, fmt.Errorf("gameclient: resolve: unexpected status %d (%s)", resp.StatusCode(), apiErr.Error)
	}
}

// Score retorna a pontuação corrente do usuário (criada em zero se nova)
func (c *Client) Score(ctx context.Context, userID string) (int64, error) {
	var out struct {
		UserID string `json:"userId"`
		Score  int64  `json:"score"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("userId", userID).
		SetResult(&out).
		Get("/score")
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("gameclient: score: unexpected status %d", resp.StatusCode())
	}
	return out.Score, nil
}
