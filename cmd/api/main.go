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
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/gateway"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/handler"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/identity"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/messaging"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/metrics"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/middleware"
	"github.com/AchilleasB/classroom/signup-engine/internal/adapters/storage"
	"github.com/AchilleasB/classroom/signup-engine/internal/config"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/domain"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/ports"
	"github.com/AchilleasB/classroom/signup-engine/internal/core/services"
	"github.com/AchilleasB/classroom/signup-engine/internal/platform/clock"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.Checker{}
	substrate, closeSubstrate := openSubstrate(ctx, cfg, logger, checks)
	defer closeSubstrate()

	var sink messaging.NoticeSink = messaging.LogSink{Logger: logger}
	if cfg.RabbitMQURL != "" {
		broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.NoticeQueueName)
		if err != nil {
			logger.Warn("rabbitmq unavailable, notices go to the log", "error", err)
		} else {
			defer broker.Close()
			sink = broker
			checks["rabbitmq"] = func(context.Context) error {
				if broker.IsClosed() {
					return errors.New("connection closed")
				}
				return nil
			}
			logger.Info("connected to RabbitMQ", "queue", cfg.NoticeQueueName)
		}
	}
	notifier := messaging.NewAsyncNotifier(sink, messaging.WithNotifierLogger(logger))

	m := metrics.New(prometheus.DefaultRegisterer)
	clk := clock.Real{}
	accounts := gateway.NewAccountClient(cfg.AccountAPIURL)
	otp := gateway.NewOtpClient(cfg.OtpAPIURL)

	decoderOpts := []identity.Option{}
	if !cfg.VerifyGoogleTokens {
		logger.Warn("google ID tokens are not signature-checked")
		decoderOpts = append(decoderOpts, identity.WithoutVerification())
	}
	decoder := identity.NewGoogleDecoder(cfg.GoogleClientID, decoderOpts...)
	linker, err := services.NewIdentityLinker(decoder, clk)
	if err != nil {
		logger.Error("failed to build identity linker", "error", err)
		os.Exit(1)
	}

	sessionCfg := services.SessionConfig{
		Channels:            []domain.ChannelID{domain.ChannelEmail, domain.ChannelPhone},
		RequireBoth:         cfg.RequireBoth,
		RequireVerification: cfg.RequireVerification,
		ResendCooldown:      cfg.ResendCooldown,
		SwitchDelay:         cfg.SwitchDelay,
		AutosaveDelay:       cfg.AutosaveDelay,
	}

	factory := func(ctx context.Context, sessionID, deviceKey string) (handler.Bundle, error) {
		sessionLogger := logger.With("session_id", sessionID)
		drafts, err := services.NewDraftStore(substrate, deviceKey, clk,
			services.WithDraftTTL(cfg.DraftTTL),
			services.WithDraftLogger(sessionLogger),
			services.WithDraftMetrics(m),
		)
		if err != nil {
			return handler.Bundle{}, err
		}
		session, err := services.NewRegistrationSession(sessionCfg, services.Dependencies{
			Accounts: accounts,
			Otp:      otp,
			Linker:   linker,
			Drafts:   drafts,
			Clock:    clk,
			Notifier: notifier.For(sessionID),
		}, services.WithLogger(sessionLogger), services.WithMetrics(m))
		if err != nil {
			return handler.Bundle{}, err
		}
		return handler.Bundle{
			Session:    session,
			Negotiator: services.NewResumeNegotiator(drafts, clk, m, sessionLogger),
		}, nil
	}

	registry := handler.NewRegistry(factory,
		handler.WithIdleTimeout(cfg.SessionIdleTimeout),
		handler.WithGauge(m),
		handler.WithRegistryLogger(logger),
	)
	signup := handler.NewSignupHandler(registry, logger)
	health := handler.NewHealthHandler(checks)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Health endpoints (OpenShift compatible)
	r.Get("/health", health.Health)
	r.Get("/health/ready", health.Ready)
	r.Get("/health/live", health.Live)
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/signup/sessions", signup.Routes())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port, "draft_backend", cfg.DraftBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return registry.Run(gctx, time.Minute)
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		registry.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// openSubstrate connects the configured draft backend and registers its readiness check.
func openSubstrate(ctx context.Context, cfg *config.Config, logger *slog.Logger, checks map[string]handler.Checker) (ports.DraftSubstrate, func()) {
	switch cfg.DraftBackend {
	case config.DraftBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to Redis", "addr", cfg.RedisAddress)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		return storage.NewRedisSubstrate(client, cfg.DraftTTL), func() { client.Close() }

	case config.DraftBackendPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		sub := storage.NewSQLSubstrate(db)
		if err := sub.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare draft table", "error", err)
			os.Exit(1)
		}
		checks["database"] = db.PingContext
		return sub, func() { db.Close() }

	default:
		logger.Warn("drafts are kept in memory and lost on restart")
		return storage.NewMemorySubstrate(), func() {}
	}
}
