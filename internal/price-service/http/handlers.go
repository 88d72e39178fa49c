package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/pricefeed"
	"github.com/radieske/btc-guess-platform/pkg/contracts/events"
)

// SharedCache abstrai o cache compartilhado de cotações (Redis)
type SharedCache interface {
	GetCurrent(ctx context.Context, symbol string) (events.PriceUpdate, bool, error)
}

// History abstrai a leitura do histórico de cotações (Postgres)
type History interface {
	ListTicks(ctx context.Context, symbol string, limit int) ([]events.PriceUpdate, error)
}

// API expõe os endpoints REST de consulta de cotações
// A leitura de /v1/price segue a cadeia: cache local -> Redis -> consulta nas APIs públicas
type API struct {
	Log     *zap.Logger
	Local   *pricefeed.Cache   // cache local em memória, de vida curta
	Shared  SharedCache        // cache compartilhado (Redis), alimentado pelo processor
	Fetcher *pricefeed.Fetcher // fallback direto nas APIs públicas
	Hist    History

	// OnFallback registra de qual camada a cotação foi servida (métricas)
	OnFallback func(layer string)
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/price", a.getPrice)                  // Cotação corrente do BTC
	r.Get("/v1/price/history", a.getHistory)        // Últimos ticks persistidos
	r.Get("/v1/price/{symbol}", a.getPriceBySymbol) // Cotação corrente por símbolo
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) getPrice(w http.ResponseWriter, r *http.Request) {
	a.servePrice(w, r, pricefeed.DefaultSymbol)
}

func (a *API) getPriceBySymbol(w http.ResponseWriter, r *http.Request) {
	a.servePrice(w, r, chi.URLParam(r, "symbol"))
}

// servePrice resolve a cotação corrente percorrendo as camadas de cache
func (a *API) servePrice(w http.ResponseWriter, r *http.Request, symbol string) {
	ctx := r.Context()

	// 1) cache local em memória
	if symbol == pricefeed.DefaultSymbol && a.Local != nil {
		if e, ok := a.Local.Get(); ok {
			a.mark("local")
			writeJSON(w, http.StatusOK, e)
			return
		}
	}

	// 2) cache compartilhado no Redis, alimentado pelo pipeline
	if a.Shared != nil {
		e, ok, err := a.Shared.GetCurrent(ctx, symbol)
		if err != nil {
			a.Log.Warn("redis price lookup failed", zap.Error(err))
		}
		if ok {
			if symbol == pricefeed.DefaultSymbol && a.Local != nil {
				a.Local.Set(e)
			}
			a.mark("redis")
			writeJSON(w, http.StatusOK, e)
			return
		}
	}

	// 3) fallback: consulta direta nas APIs públicas de cotação
	if symbol == pricefeed.DefaultSymbol && a.Fetcher != nil {
		e, err := a.Fetcher.Fetch(ctx)
		if err == nil {
			if a.Local != nil {
				a.Local.Set(e)
			}
			a.mark("fetch")
			writeJSON(w, http.StatusOK, e)
			return
		}
		a.Log.Warn("price fetch fallback failed", zap.Error(err))
	}

	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "price unavailable"})
}

func (a *API) getHistory(w http.ResponseWriter, r *http.Request) {
	if a.Hist == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history unavailable"})
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	ticks, err := a.Hist.ListTicks(r.Context(), pricefeed.DefaultSymbol, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ticks == nil {
		ticks = []events.PriceUpdate{}
	}
	writeJSON(w, http.StatusOK, ticks)
}

func (a *API) mark(layer string) {
	if a.OnFallback != nil {
		a.OnFallback(layer)
	}
}
