package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// DefaultSymbol é o único par suportado hoje
const DefaultSymbol = "BTCUSDT"

// Provider descreve uma fonte REST de cotação BTC/USD
type Provider struct {
	Name  string
	URL   string
	Parse func([]byte) (float64, error)
}

// DefaultProviders retorna as fontes em ordem de preferência.
// Coinbase primeiro, CoinGecko e Binance como fallback.
func DefaultProviders() []Provider {
	return []Provider{
		{
			Name: "coinbase",
			URL:  "https://api.coinbase.com/v2/exchange-rates?currency=BTC",
			Parse: func(b []byte) (float64, error) {
				var out struct {
					Data struct {
						Rates map[string]string `json:"rates"`
					} `json:"data"`
				}
				if err := json.Unmarshal(b, &out); err != nil {
					return 0, err
				}
				return strconv.ParseFloat(out.Data.Rates["USD"], 64)
			},
		},
		{
			Name: "coingecko",
			URL:  "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd",
			Parse: func(b []byte) (float64, error) {
				var out map[string]map[string]float64
				if err := json.Unmarshal(b, &out); err != nil {
					return 0, err
				}
				p, ok := out["bitcoin"]["usd"]
				if !ok {
					return 0, errors.New("missing bitcoin.usd")
				}
				return p, nil
			},
		},
		{
			Name: "binance",
			URL:  "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT",
			Parse: func(b []byte) (float64, error) {
				var out struct {
					Price string `json:"price"`
				}
				if err := json.Unmarshal(b, &out); err != nil {
					return 0, err
				}
				return strconv.ParseFloat(out.Price, 64)
			},
		},
	}
}

// Fetcher consulta as fontes REST em ordem, devolvendo a primeira cotação
// válida. O rate limiter protege as APIs públicas de polling agressivo.
type Fetcher struct {
	http      *resty.Client
	providers []Provider
	limiter   *rate.Limiter
	log       *zap.Logger
}

// NewFetcher monta o fetcher com retry e timeout no cliente HTTP
func NewFetcher(log *zap.Logger, providers []Provider, perSecond rate.Limit) *Fetcher {
	cli := resty.New().
		SetTimeout(5*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetHeader("User-Agent", "btc-guess-platform/1.0")

	return &Fetcher{
		http:      cli,
		providers: providers,
		limiter:   rate.NewLimiter(perSecond, 1),
		log:       log,
	}
}

// Fetch percorre as fontes até obter uma cotação válida
func (f *Fetcher) Fetch(ctx context.Context) (events.PriceUpdate, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return events.PriceUpdate{}, err
	}

	var lastErr error
	for _, p := range f.providers {
		resp, err := f.http.R().SetContext(ctx).Get(p.URL)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", p.Name, err)
			f.log.Warn("price provider failed", zap.String("provider", p.Name), zap.Error(err))
			continue
		}
		if resp.StatusCode() >= 300 {
			lastErr = fmt.Errorf("%s: http %d", p.Name, resp.StatusCode())
			f.log.Warn("price provider failed",
				zap.String("provider", p.Name), zap.Int("status", resp.StatusCode()))
			continue
		}

		price, err := p.Parse(resp.Body())
		if err != nil || price <= 0 {
			lastErr = fmt.Errorf("%s: parse: %v", p.Name, err)
			f.log.Warn("price provider returned garbage", zap.String("provider", p.Name))
			continue
		}

		return events.PriceUpdate{
			Symbol:   DefaultSymbol,
			Price:    price,
			Source:   p.Name,
			AtUnixMs: time.Now().UnixMilli(),
		}, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return events.PriceUpdate{}, fmt.Errorf("all price providers failed: %w", lastErr)
}
