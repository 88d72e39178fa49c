package game

import (
	"time"

	"github.com/google/uuid"
)

// Direction indica o sentido do palpite sobre o preço do BTC
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection valida e normaliza o sentido informado pelo cliente
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case DirectionUp:
		return DirectionUp, true
	case DirectionDown:
		return DirectionDown, true
	}
	return "", false
}

// Guess é o palpite ativo de um usuário (no máximo um por user_id).
// Todos os instantes são epoch em milissegundos; o marcador de expiração
// do storage é derivado no repositório e não participa da lógica de domínio.
type Guess struct {
	UserID     string
	ID         string
	Direction  Direction
	StartPrice float64
	CreatedAt  int64
	DeadlineAt int64
}

// NewGuess monta um palpite novo com id aleatório e prazo a partir de now
func NewGuess(userID string, dir Direction, startPrice float64, now time.Time, window time.Duration) Guess {
	return Guess{
		UserID:     userID,
		ID:         uuid.NewString(),
		Direction:  dir,
		StartPrice: startPrice,
		CreatedAt:  now.UnixMilli(),
		DeadlineAt: now.Add(window).UnixMilli(),
	}
}
