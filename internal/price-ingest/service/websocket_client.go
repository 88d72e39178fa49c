package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/price-ingest/publisher"
	"github.com/radieske/btc-guess-platform/internal/pricefeed"
	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// Staleness registra o instante do último tick recebido do stream.
// Compartilhado com o poller REST, que só atua quando o feed esfria.
type Staleness struct {
	lastUnixMs atomic.Int64
}

// Touch marca o feed como vivo agora
func (s *Staleness) Touch() { s.lastUnixMs.Store(time.Now().UnixMilli()) }

// IsStale informa se o feed ficou sem tick por mais que o limite
func (s *Staleness) IsStale(limit time.Duration) bool {
	last := s.lastUnixMs.Load()
	return last == 0 || time.Since(time.UnixMilli(last)) > limit
}

// binanceTrade é a mensagem do stream btcusdt@trade; só o preço importa
type binanceTrade struct {
	Price string `json:"p"`
	AtMs  int64  `json:"E"`
}

// WSClient consome o stream de trades da Binance e publica cada cotação
// no tópico Kafka de price_updates.
type WSClient struct {
	URL       string                    // endpoint WebSocket da Binance
	Log       *zap.Logger               // Logger estruturado
	Publisher *publisher.KafkaPublisher // Publisher Kafka para envio das cotações
	Health    *Staleness                // marcador de vivacidade do feed
}

// Start inicia o loop de conexão e escuta do WebSocket.
// Em caso de desconexão, reconecta com backoff exponencial (máx 30s).
func (c *WSClient) Start(ctx context.Context) {
	delay := time.Second
	for {
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping WS client")
			return
		default:
			if err := c.connectAndListen(ctx); err != nil {
				c.Log.Warn("connection closed", zap.Error(err))
				time.Sleep(delay)
				delay *= 2
				if delay > 30*time.Second {
					delay = 30 * time.Second
				}
				continue
			}
			delay = time.Second
		}
	}
}

// connectAndListen estabelece a conexão WebSocket e processa mensagens recebidas.
// Cada trade vira um PriceUpdate publicado no Kafka.
func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to binance WS", zap.String("url", c.URL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			c.Log.Error("read message failed", zap.Error(err))
			return err
		}

		var trade binanceTrade
		if err := json.Unmarshal(message, &trade); err != nil || trade.Price == "" {
			c.Log.Warn("invalid message", zap.Error(err))
			continue
		}
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil || price <= 0 {
			c.Log.Warn("invalid trade price", zap.String("raw", trade.Price))
			continue
		}

		at := trade.AtMs
		if at == 0 {
			at = time.Now().UnixMilli()
		}
		update := events.PriceUpdate{
			Symbol:   pricefeed.DefaultSymbol,
			Price:    price,
			Source:   "binance-ws",
			AtUnixMs: at,
		}

		if c.Health != nil {
			c.Health.Touch()
		}

		// Publica a cotação recebida no Kafka
		if err := c.Publisher.Publish(ctx, update); err != nil {
			c.Log.Error("failed to publish to Kafka", zap.Error(err))
		}
	}
}
