package price

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// ErrDeviation indica que o preço informado pelo cliente destoa demais do feed
var ErrDeviation = errors.New("price deviates from feed")

// Validator confere o preço informado pelo cliente contra a cotação
// corrente do feed no Redis. Cliente é dono do preço de liquidação;
// a checagem só barra valores absurdos (e por padrão apenas loga).
type Validator struct {
	Rdb     *redis.Client
	Log     *zap.Logger
	MaxDev  float64 // desvio relativo tolerado, ex: 0.10
	Enforce bool    // true = rejeita; false = apenas loga
}

func NewValidator(r *redis.Client, log *zap.Logger, maxDev float64, enforce bool) *Validator {
	return &Validator{Rdb: r, Log: log, MaxDev: maxDev, Enforce: enforce}
}

// Check retorna ErrDeviation somente quando Enforce está ligado e o desvio
// excede MaxDev. Sem cotação no cache, aceita o preço do cliente.
func (v *Validator) Check(ctx context.Context, clientPrice float64) error {
	if v == nil || v.Rdb == nil {
		return nil
	}

	b, err := v.Rdb.Get(ctx, "price:current:BTCUSDT").Bytes()
	if err != nil {
		return nil // cache vazio ou Redis fora: não bloqueia o jogo
	}

	var cur events.PriceUpdate
	if err := json.Unmarshal(b, &cur); err != nil || cur.Price <= 0 {
		return nil
	}

	dev := math.Abs(clientPrice-cur.Price) / cur.Price
	if dev <= v.MaxDev {
		return nil
	}

	if v.Log != nil {
		v.Log.Warn("client price deviates from feed",
			zap.Float64("client_price", clientPrice),
			zap.Float64("feed_price", cur.Price),
			zap.Float64("deviation", dev),
		)
	}
	if v.Enforce {
		return ErrDeviation
	}
	return nil
}
