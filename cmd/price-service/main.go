package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	ppcache "github.com/radieske/btc-guess-platform/internal/price-processor/cache"
	phttp "github.com/radieske/btc-guess-platform/internal/price-service/http"
	"github.com/radieske/btc-guess-platform/internal/price-service/repo"
	"github.com/radieske/btc-guess-platform/internal/price-service/ws"
	"github.com/radieske/btc-guess-platform/internal/pricefeed"
	sharedcache "github.com/radieske/btc-guess-platform/internal/shared/cache"
	"github.com/radieske/btc-guess-platform/internal/shared/config"
	"github.com/radieske/btc-guess-platform/internal/shared/db"
	"github.com/radieske/btc-guess-platform/internal/shared/logger"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "price-service")
	}
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Postgres (histórico de ticks)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	// Redis (cache compartilhado + pub/sub)
	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Métricas por camada de fallback da leitura de preço
	served := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "price_service_reads_total", Help: "leituras por camada"},
		[]string{"layer"},
	)
	prometheus.MustRegister(served)

	api := &phttp.API{
		Log:        log,
		Local:      pricefeed.NewCache(cfg.PriceCacheTTL),
		Shared:     ppcache.NewRedisCache(redisClient, cfg.PriceCacheTTL),
		Fetcher:    pricefeed.NewFetcher(log, pricefeed.DefaultProviders(), 2),
		Hist:       &repo.ReadRepo{DB: pg},
		OnFallback: func(layer string) { served.WithLabelValues(layer).Inc() },
	}

	// WebSocket hub alimentado pelo Redis Pub/Sub
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ws.StartRedisSubscriber(ctx, redisClient, hub)

	mux := http.NewServeMux()
	mux.Handle("/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)

	// metrics/health
	go func() {
		mmux := http.NewServeMux()
		mmux.Handle("/metrics", promhttp.Handler())
		mmux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			hctx, hcancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer hcancel()
			if err := pg.PingContext(hctx); err != nil {
				http.Error(w, "postgres not healthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
			if err := redisClient.Ping(hctx).Err(); err != nil {
				http.Error(w, "redis not healthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health server starting", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mmux)
	}()

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("price-service listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("price-service failed", zap.Error(err))
	}
}
