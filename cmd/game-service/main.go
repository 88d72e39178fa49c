package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	ghttp "github.com/radieske/btc-guess-platform/internal/game-service/http"
	"github.com/radieske/btc-guess-platform/internal/game-service/price"
	kpub "github.com/radieske/btc-guess-platform/internal/game-service/producer"
	"github.com/radieske/btc-guess-platform/internal/game-service/repo"
	"github.com/radieske/btc-guess-platform/internal/leaderboard"
	sharedcache "github.com/radieske/btc-guess-platform/internal/shared/cache"
	"github.com/radieske/btc-guess-platform/internal/shared/config"
	"github.com/radieske/btc-guess-platform/internal/shared/db"
	"github.com/radieske/btc-guess-platform/internal/shared/logger"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "game-service")
	}
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic guess_resolved)
	writer := kafkago.NewWriter(kafkago.WriterConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		Topic:    cfg.TopicGuessResolved,
		Balancer: &kafkago.LeastBytes{},
	})
	defer writer.Close()

	// deps
	repository := repo.NewPostgres(pg)
	pv := price.NewValidator(rdb, log, cfg.MaxPriceDev, cfg.EnforcePriceDev)
	publ := kpub.NewKafkaPublisher(writer, cfg.TopicGuessResolved)
	rank := leaderboard.NewStore(rdb)

	// HTTP público
	api := ghttp.NewServer(log, repository, pv, publ, rank, cfg.GuessWindow, cfg.GuessExpiry)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("game-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
