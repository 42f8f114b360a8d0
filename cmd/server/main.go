package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/examforge/sessiond/internal/access"
	"github.com/examforge/sessiond/internal/autosave"
	"github.com/examforge/sessiond/internal/config"
	"github.com/examforge/sessiond/internal/database"
	"github.com/examforge/sessiond/internal/exams"
	"github.com/examforge/sessiond/internal/handler"
	"github.com/examforge/sessiond/internal/identity"
	"github.com/examforge/sessiond/internal/logger"
	"github.com/examforge/sessiond/internal/registry"
	"github.com/examforge/sessiond/internal/router"
	"github.com/examforge/sessiond/internal/session"
	"github.com/examforge/sessiond/internal/signer"
	"github.com/examforge/sessiond/internal/upstream"
	"github.com/examforge/sessiond/internal/validator"
	"github.com/examforge/sessiond/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Session Engine")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Register Exams ────────────────────────────────────────────────
	reg := registry.New()
	exams.RegisterAll(reg)
	log.Info().Strs("exams", reg.IDs()).Msg("Exams registered")

	// ─── Initialize Services ───────────────────────────────────────────
	submissionSigner, err := signer.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load submission public key")
	}

	backend := upstream.NewClient(cfg.UpstreamBaseURL, log)
	resolver := access.NewResolver(backend, log)
	store := autosave.NewRedisStore(rdb, pool, log)
	identitySvc := identity.NewService(cfg, rdb, log)

	manager := session.NewManager(session.Deps{
		Registry:     reg,
		Resolver:     resolver,
		Store:        store,
		Signer:       submissionSigner,
		Backend:      backend,
		HistoryLimit: cfg.HistoryLimit,
		TickInterval: cfg.TickInterval,
		Log:          log,
	})

	// ─── Initialize Handlers ───────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(manager, identitySvc, log),
		WS:      handler.NewWSHandler(manager, identitySvc, cfg.AllowedOrigins, log),
	}

	// ─── Start Background Workers ──────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	draftWorker := worker.NewDraftWorker(pool, rdb, log)
	go draftWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(identitySvc, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop every live session's clock monitor.
	manager.CloseAll()

	// 3. Stop the draft worker and wait for the persist queue to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow the worker to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
