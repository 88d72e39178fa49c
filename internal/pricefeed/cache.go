package pricefeed

import (
	"sync"
	"time"

	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// Cache guarda a última cotação em memória com TTL e relógio injetável.
// Substitui o antigo cache global de processo, que resetava de forma
// imprevisível entre invocações.
type Cache struct {
	mu  sync.Mutex
	val events.PriceUpdate
	ok  bool
	at  time.Time
	ttl time.Duration
	now func() time.Time
}

// NewCache cria o cache com o TTL informado
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// WithClock substitui o relógio (testes)
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get retorna a cotação se ainda estiver dentro do TTL
func (c *Cache) Get() (events.PriceUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok || c.now().Sub(c.at) >= c.ttl {
		return events.PriceUpdate{}, false
	}
	return c.val, true
}

// Set registra a cotação e reinicia a janela de validade
func (c *Cache) Set(v events.PriceUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.val = v
	c.ok = true
	c.at = c.now()
}
