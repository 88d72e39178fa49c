package leaderboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedkafka "github.com/radieske/btc-guess-platform/internal/shared/kafka"
	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// Consumer consome eventos guess_resolved e aplica os deltas no ranking.
// Mensagens inválidas vão para a DLQ quando configurada.
type Consumer struct {
	Log    *zap.Logger
	Reader *kafka.Reader
	Store  *Store
	DLQ    *kafka.Writer // opcional

	OnConsumed func()       // métricas (counter++)
	OnApplied  func()       // métricas
	OnError    func(string) // métricas por fase
}

// Run inicia o loop principal de consumo
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka read failed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if c.OnConsumed != nil {
			c.OnConsumed()
		}

		var ev events.GuessResolved
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.UserID == "" {
			c.Log.Warn("invalid message", zap.Error(err))
			if c.OnError != nil {
				c.OnError("decode")
			}
			c.sendDLQ(ctx, m.Value)
			continue
		}

		if err := c.Store.Apply(ctx, ev.UserID, ev.Delta); err != nil {
			c.Log.Warn("redis apply failed", zap.Error(err))
			if c.OnError != nil {
				c.OnError("apply")
			}
			continue
		}
		if c.OnApplied != nil {
			c.OnApplied()
		}
	}
}

func (c *Consumer) sendDLQ(ctx context.Context, payload []byte) {
	if c.DLQ == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sharedkafka.WriteJSON(wctx, c.DLQ, "invalid", payload); err != nil {
		c.Log.Warn("dlq write failed", zap.Error(err))
	}
}
