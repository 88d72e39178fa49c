package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/price-ingest/publisher"
	"github.com/radieske/btc-guess-platform/internal/pricefeed"
)

// RestPoller é o plano B do feed: quando o stream WebSocket fica mudo,
// consulta as fontes REST com failover e publica no mesmo tópico.
type RestPoller struct {
	Log       *zap.Logger
	Fetcher   *pricefeed.Fetcher
	Publisher *publisher.KafkaPublisher
	Health    *Staleness
	Interval  time.Duration // frequência de verificação
	StaleTime time.Duration // silêncio do WS que dispara o fallback
}

// Start roda o loop de verificação até o contexto ser cancelado
func (p *RestPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Log.Info("context canceled, stopping REST poller")
			return
		case <-ticker.C:
			if p.Health != nil && !p.Health.IsStale(p.StaleTime) {
				continue // stream vivo, nada a fazer
			}

			fctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			update, err := p.Fetcher.Fetch(fctx)
			cancel()
			if err != nil {
				p.Log.Warn("rest fallback fetch failed", zap.Error(err))
				continue
			}

			if err := p.Publisher.Publish(ctx, update); err != nil {
				p.Log.Error("failed to publish fallback price", zap.Error(err))
				continue
			}
			p.Log.Info("published fallback price",
				zap.Float64("price", update.Price), zap.String("source", update.Source))
		}
	}
}
