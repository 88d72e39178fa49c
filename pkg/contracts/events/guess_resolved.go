package events

// Evento emitido pelo game-service após a transação de resolução ser confirmada.
type GuessResolved struct {
	UserID     string  `json:"user_id"`
	GuessID    string  `json:"guess_id"`
	Direction  string  `json:"direction"` // "up" | "down"
	Correct    bool    `json:"correct"`
	Delta      int64   `json:"delta"` // +1 | -1
	Score      int64   `json:"score"` // pontuação após a resolução
	StartPrice float64 `json:"start_price"`
	EndPrice   float64 `json:"end_price"`
	DurationMs int64   `json:"duration_ms"`
	TsUnixMs   int64   `json:"ts_unix_ms"`
}
