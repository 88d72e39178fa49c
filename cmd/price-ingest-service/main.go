package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/price-ingest/publisher"
	"github.com/radieske/btc-guess-platform/internal/price-ingest/service"
	"github.com/radieske/btc-guess-platform/internal/pricefeed"
	"github.com/radieske/btc-guess-platform/internal/shared/config"
	"github.com/radieske/btc-guess-platform/internal/shared/logger"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "price-ingest-service")
	}
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka Publisher
	pub := publisher.NewKafkaPublisher(
		strings.Split(cfg.KafkaBrokers, ","),
		cfg.TopicPriceUpdates,
		log,
	)
	defer pub.Close()

	// Fonte primária: stream de trades da Binance
	health := &service.Staleness{}
	wsClient := &service.WSClient{
		URL:       cfg.BinanceWSURL,
		Log:       log,
		Publisher: pub,
		Health:    health,
	}
	go wsClient.Start(ctx)

	// Fonte secundária: polling REST com failover entre provedores,
	// acionado apenas quando o stream fica mudo
	poller := &service.RestPoller{
		Log:       log,
		Fetcher:   pricefeed.NewFetcher(log, pricefeed.DefaultProviders(), 2),
		Publisher: pub,
		Health:    health,
		Interval:  5 * time.Second,
		StaleTime: 15 * time.Second,
	}
	go poller.Start(ctx)

	// Metrics e health
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health listening", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	time.Sleep(2 * time.Second)
}
