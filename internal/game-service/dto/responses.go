package dto

// Guess é a projeção pública de um palpite ativo.
// createdAt e deadlineAt em epoch ms; o marcador de expiração do
// storage não é exposto.
type Guess struct {
	UserID     string  `json:"userId"`
	ID         string  `json:"id"`
	Direction  string  `json:"direction"`
	StartPrice float64 `json:"startPrice"`
	CreatedAt  int64   `json:"createdAt"`
	DeadlineAt int64   `json:"deadlineAt"`
}

type CreateGuessResponse struct {
	GuessID    string  `json:"guessId"`
	Direction  string  `json:"direction"`
	StartPrice float64 `json:"startPrice"`
	CreatedAt  int64   `json:"createdAt"`
	DeadlineAt int64   `json:"deadlineAt"`
}

// ActiveGuessResponse envelopa o palpite ativo; null quando não há
type ActiveGuessResponse struct {
	ActiveGuess *Guess `json:"activeGuess"`
}

type ResolveGuessResponse struct {
	IsCorrect  bool    `json:"isCorrect"`
	Score      int64   `json:"score"`
	StartPrice float64 `json:"startPrice"`
	EndPrice   float64 `json:"endPrice"`
	Direction  string  `json:"direction"`
	Duration   int64   `json:"duration"` // ms entre criação e resolução
}

type ScoreResponse struct {
	UserID string `json:"userId"`
	Score  int64  `json:"score"`
}

type HistoryEntry struct {
	GuessID    string  `json:"guessId"`
	Direction  string  `json:"direction"`
	StartPrice float64 `json:"startPrice"`
	EndPrice   float64 `json:"endPrice"`
	IsCorrect  bool    `json:"isCorrect"`
	Delta      int64   `json:"delta"`
	ResolvedAt int64   `json:"resolvedAt"`
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Score  int64  `json:"score"`
}
