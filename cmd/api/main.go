package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/craftfolio/backend/internal/auth"
	"github.com/craftfolio/backend/internal/config"
	"github.com/craftfolio/backend/internal/expiry"
	"github.com/craftfolio/backend/internal/ledger"
	"github.com/craftfolio/backend/internal/profile"
	"github.com/craftfolio/backend/internal/router"
	"github.com/craftfolio/backend/internal/session"
	"github.com/craftfolio/backend/internal/subscription"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()

	strategy, err := auth.ParseStrategy(cfg.AuthStrategy)
	if err != nil {
		slog.Error("Invalid AUTH_STRATEGY", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL")

	// River migrations (queue tables only; app schema is managed externally).
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}

	sessionStore, err := session.NewRedisStore(ctx, cfg.Redis, cfg.SessionTTL)
	if err != nil {
		slog.Error("Cannot reach Redis. Ensure Redis is running", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to Redis")

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	verifier := auth.NewVerifier(strategy, sessionStore, issuer)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerSvc := ledger.NewService(ledgerRepo, logger)

	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo)
	authHandler := auth.NewHandler(authSvc, sessionStore, issuer, strategy, cfg.SessionTTL, cfg.TokenTTL, cfg.Production(), logger)

	subHandler := subscription.NewHandler(ledgerSvc, logger)

	profileRepo := profile.NewRepository(pool)
	profileHandler := profile.NewHandler(profileRepo, ledgerSvc, logger)

	// Expiry sweep: hourly, and once at startup.
	workers := river.NewWorkers()
	river.AddWorker(workers, expiry.NewSweepWorker(ledgerRepo, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Hour),
				func() (river.JobArgs, *river.InsertOpts) {
					return expiry.SweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	handler := router.New(authHandler, subHandler, profileHandler, verifier)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(handler)

	slog.Info("Starting HTTP server", "addr", cfg.HTTPAddr, "strategy", string(strategy))
	if err := http.ListenAndServe(cfg.HTTPAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
