package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aznacademy/aznexam-backend/internal/config"
	"github.com/aznacademy/aznexam-backend/internal/database"
	"github.com/aznacademy/aznexam-backend/internal/handler"
	"github.com/aznacademy/aznexam-backend/internal/logger"
	"github.com/aznacademy/aznexam-backend/internal/queue"
	"github.com/aznacademy/aznexam-backend/internal/repository"
	"github.com/aznacademy/aznexam-backend/internal/router"
	"github.com/aznacademy/aznexam-backend/internal/service"
	"github.com/aznacademy/aznexam-backend/internal/validator"
	"github.com/aznacademy/aznexam-backend/internal/worker"
	"github.com/rs/zerolog"
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
		Msg("Starting AznExam Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	accessCodeRepo := repository.NewAccessCodeRepository(pool)
	retestKeyRepo := repository.NewRetestKeyRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	dispatcher := queue.NewRedisDispatcher(rdb)
	authService := service.NewAuthService(cfg)
	testService := service.NewTestService(testRepo, questionRepo)
	slotService := service.NewSlotService(slotRepo)
	accessCodeService := service.NewAccessCodeService(slotRepo, accessCodeRepo)
	retestService := service.NewRetestService(retestKeyRepo, submissionRepo, cfg.MasterRetestKey)
	resultService := service.NewResultService(submissionRepo)
	sessionService := service.NewSessionService(
		testRepo, questionRepo, slotService, accessCodeService,
		retestService, submissionRepo, dispatcher, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Entry:   handler.NewEntryHandler(cfg, testService, sessionService, authService, log),
		Session: handler.NewSessionHandler(sessionService, log),
		Test:    handler.NewTestHandler(testService, log),
		Access:  handler.NewAccessHandler(slotService, accessCodeService, log),
		Result:  handler.NewResultHandler(resultService, log),
		Retest:  handler.NewRetestHandler(retestService, log),
		Monitor: handler.NewMonitorHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	retestWorker := worker.NewRetestWorker(submissionRepo, retestKeyRepo, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)

	go retestWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
