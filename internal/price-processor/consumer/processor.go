package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/price-processor/cache"
	"github.com/radieske/btc-guess-platform/internal/price-processor/pubsub"
	"github.com/radieske/btc-guess-platform/internal/price-processor/repository"
	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// Processor consome mensagens de cotação do Kafka, faz cache, persiste e rebroadcasta
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa
type Processor struct {
	Log       *zap.Logger
	Reader    *kafka.Reader
	Repo      *repository.PostgresRepo
	Cache     *cache.RedisCache
	Broadcast *pubsub.RedisBroadcaster

	OnConsumed  func()       // métricas (counter++)
	OnCached    func()       // métricas
	OnPersist   func()       // métricas
	OnBroadcast func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run inicia o loop principal de consumo e processamento das mensagens Kafka
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed() // callback de métrica: mensagem consumida
		}

		var ev events.PriceUpdate
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			continue
		}

		// Atualiza cache Redis com a cotação corrente
		if err := p.Cache.SetCurrent(ctx, ev); err != nil {
			p.Log.Warn("redis set failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("cache")
			}
			// não bloqueia persistência se falhar o cache
		} else if p.OnCached != nil {
			p.OnCached() // callback de métrica: cache atualizado
		}

		// Persiste o tick no histórico de cotações
		if err := p.Repo.InsertTick(ctx, ev); err != nil {
			p.Log.Warn("db insert tick failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("db_tick")
			}
			continue
		}
		if p.OnPersist != nil {
			p.OnPersist() // callback de métrica: persistência concluída
		}

		// Rebroadcast via Redis Pub/Sub para o WS do price-service
		if p.Broadcast != nil {
			payload, _ := json.Marshal(pubsub.WSUpdate{Symbol: ev.Symbol, Payload: ev})
			if err := p.Broadcast.Publish(ctx, pubsub.ChannelPriceBroadcast, payload); err != nil {
				p.Log.Warn("redis publish failed", zap.Error(err))
				if p.OnError != nil {
					p.OnError("broadcast")
				}
			} else if p.OnBroadcast != nil {
				p.OnBroadcast()
			}
		}
	}
}
