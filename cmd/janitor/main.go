package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/janitor"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/metrics"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/storage"
	"github.com/AchilleasB/classroom/signup-engine/internal/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("component", "draft-janitor")
	slog.SetDefault(logger)
	logger.Info("starting draft janitor")

	cfg := config.LoadJanitorConfig()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("database connection initialized, circuit breaker will validate on first sweep")

	m := metrics.New(prometheus.DefaultRegisterer)
	worker := janitor.New(storage.NewSQLSubstrate(db), cfg.DraftTTL, cfg.Interval,
		janitor.WithLogger(logger),
		janitor.WithRecorder(m),
	)

	r := chi.NewRouter()
	r.Get("/health", probe(worker.IsHealthy))
	r.Get("/health/ready", probe(worker.IsReady))
	r.Handle("/metrics", promhttp.Handler())

	healthServer := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "addr", cfg.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("janitor stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func probe(check func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := "UP"
		httpStatus := http.StatusOK
		if !check() {
			status = "DOWN"
			httpStatus = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_, _ = w.Write([]byte(`{"status":"` + status + `","component":"draft-janitor"}`))
	}
}
