package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/shared/config"
	"github.com/radieske/btc-guess-platform/internal/shared/logger"
)

func rp(to string) *httputil.ReverseProxy {
	u, _ := url.Parse(to)
	return httputil.NewSingleHostReverseProxy(u)
}

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "api-gateway")
	}
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// targets
	gameURL := os.Getenv("GAME_URL")
	if gameURL == "" {
		gameURL = "http://localhost:8083"
	}
	priceURL := os.Getenv("PRICE_URL")
	if priceURL == "" {
		priceURL = "http://localhost:8080"
	}
	game := rp(gameURL)
	price := rp(priceURL)

	mux := http.NewServeMux()

	// jogo (ex.: /api/game/guesses -> game-service /guesses)
	mux.Handle("/api/game/", http.StripPrefix("/api/game", game))

	// cotações (ex.: /api/price/v1/price -> price-service; inclui o upgrade de /ws)
	mux.Handle("/api/price/", http.StripPrefix("/api/price", price))

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, withCORS(mux)); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
