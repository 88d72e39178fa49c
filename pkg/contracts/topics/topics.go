package topics

const (
	// Preço
	PriceUpdates = "price_updates"

	// Palpites
	GuessResolved = "guess_resolved"

	// DLQs
	GuessResolvedDLQ = "guess_resolved_dlq"
)
