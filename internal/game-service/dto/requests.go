package dto

type CreateGuessRequest struct {
	UserID       string  `json:"userId"`
	Direction    string  `json:"direction"` // "up" | "down"
	CurrentPrice float64 `json:"currentPrice"`
}

type ResolveGuessRequest struct {
	UserID       string  `json:"userId"`
	GuessID      string  `json:"guessId"`
	CurrentPrice float64 `json:"currentPrice"` // preço de liquidação
}
