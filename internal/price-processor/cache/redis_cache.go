package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// RedisCache encapsula o cache da cotação corrente no Redis
// Client: cliente Redis
// TTL: tempo de expiração dos registros
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache cria uma instância de cache Redis com TTL configurável
func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// key gera a chave Redis da cotação corrente de um símbolo
func key(symbol string) string { return "price:current:" + symbol }

// SetCurrent armazena a cotação corrente no Redis com TTL definido
func (r *RedisCache) SetCurrent(ctx context.Context, e events.PriceUpdate) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(e.Symbol), b, r.TTL).Err()
}

// GetCurrent lê a cotação corrente; ok=false quando não há registro válido
func (r *RedisCache) GetCurrent(ctx context.Context, symbol string) (events.PriceUpdate, bool, error) {
	b, err := r.Client.Get(ctx, key(symbol)).Bytes()
	if err == redis.Nil {
		return events.PriceUpdate{}, false, nil
	}
	if err != nil {
		return events.PriceUpdate{}, false, err
	}
	var e events.PriceUpdate
	if err := json.Unmarshal(b, &e); err != nil {
		return events.PriceUpdate{}, false, err
	}
	return e, true, nil
}
