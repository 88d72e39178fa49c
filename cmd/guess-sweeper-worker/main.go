package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/btc-guess-platform/internal/game-service/repo"
	"github.com/radieske/btc-guess-platform/internal/shared/config"
	"github.com/radieske/btc-guess-platform/internal/shared/db"
	"github.com/radieske/btc-guess-platform/internal/shared/logger"
	"github.com/radieske/btc-guess-platform/internal/shared/metrics"
	"github.com/radieske/btc-guess-platform/internal/sweeper"
)

func main() {
	if os.Getenv("SERVICE_NAME") == "" {
		_ = os.Setenv("SERVICE_NAME", "guess-sweeper-worker")
	}
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	swept := prometheus.NewCounter(prometheus.CounterOpts{Name: "guess_sweeper_removed_total", Help: "palpites expirados removidos"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "guess_sweeper_runs_total", Help: "varreduras executadas"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "guess_sweeper_failures_total", Help: "varreduras com erro"})
	prometheus.MustRegister(swept, runs, failures)

	sw := sweeper.New(log, repo.NewPostgres(pg))
	sw.OnSwept = func(n int64) { swept.Add(float64(n)) }
	sw.OnError = func() { failures.Inc() }

	// agenda periódica das varreduras
	c := cron.New()
	_, err = c.AddFunc(cfg.SweepSchedule, func() {
		runs.Inc()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = sw.Sweep(ctx)
	})
	if err != nil {
		log.Fatal("invalid sweep schedule", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})
	log.Info("metrics/health listening", zap.String("addr", fmt.Sprintf(":%s", cfg.MetricsPort)))

	log.Info("guess-sweeper started", zap.String("schedule", cfg.SweepSchedule))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
}
