package events

// Evento publicado no tópico "price_updates"
type PriceUpdate struct {
	Symbol   string  `json:"symbol"` // "BTCUSDT"
	Price    float64 `json:"price"`
	Source   string  `json:"source"`     // "binance-ws", "coinbase", ...
	AtUnixMs int64   `json:"at_unix_ms"` // instante da cotação
}
