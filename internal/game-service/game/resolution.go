package game

// Outcome decide se o palpite acertou dado o preço de liquidação.
// Desigualdade estrita nos dois sentidos: preço inalterado erra sempre.
func Outcome(dir Direction, startPrice, endPrice float64) bool {
	switch dir {
	case DirectionUp:
		return endPrice > startPrice
	case DirectionDown:
		return endPrice < startPrice
	}
	return false
}

// Delta é o ajuste de pontuação de um palpite resolvido: +1 acerto, -1 erro
func Delta(correct bool) int64 {
	if correct {
		return 1
	}
	return -1
}

// Resolution é o resultado de uma resolução confirmada, incluindo o
// palpite original e a pontuação após o ajuste
type Resolution struct {
	Guess      Guess
	Correct    bool
	Delta      int64
	Score      int64
	EndPrice   float64
	ResolvedAt int64 // epoch ms
}

// DurationMs é o tempo entre a criação do palpite e a resolução
func (r Resolution) DurationMs() int64 {
	return r.ResolvedAt - r.Guess.CreatedAt
}
