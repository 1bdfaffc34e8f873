// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/avnikapoor/stylora-backend/internal/common/database"
	"github.com/avnikapoor/stylora-backend/internal/config"
	"github.com/avnikapoor/stylora-backend/internal/personalization"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	logger.Info().Msg("========================================")
	logger.Info().Msg("🚀 Starting Stylora Personalization API")
	logger.Info().Msg("========================================")

	// 1. Load environment variables
	logger.Info().Msg("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		logger.Warn().Err(err).Msg("⚠️  No .env file found, using environment variables")
	} else {
		logger.Info().Msg("✅ .env file loaded successfully")
	}

	// 2. Load configuration
	logger.Info().Msg("📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("❌ Configuration validation failed")
	}
	if cfg.PrettyLog {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	logger.Info().Str("environment", cfg.Environment).Msg("✅ Configuration is valid")

	// 3. Connect to PostgreSQL
	logger.Info().Msg("🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to connect to PostgreSQL")
	}
	defer db.Close()
	logger.Info().Msg("✅ Connected to PostgreSQL successfully")

	// 4. Run database migrations
	logger.Info().Msg("🔨 Step 4: Running database migrations...")
	if err := runMigrations(db); err != nil {
		logger.Fatal().Err(err).Msg("❌ Failed to run migrations")
	}
	logger.Info().Msg("✅ Database migrations completed")

	// 5. Connect to Redis (optional; anti-repetition and exploration
	// state degrade gracefully without it)
	logger.Info().Msg("📮 Step 5: Connecting to Redis...")
	redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("⚠️  Redis unavailable, continuing without hot-state cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
		logger.Info().Msg("✅ Connected to Redis successfully")
	}

	// 6. Initialize the personalization engine
	logger.Info().Msg("🧠 Step 6: Initializing personalization engine...")
	store := personalization.NewDocumentStore(db, redisClient)
	engine := personalization.NewEngine(store, logger, personalization.EngineConfig{
		SnapshotCacheSize:     cfg.SnapshotCacheSize,
		SnapshotCacheTTL:      cfg.SnapshotCacheTTL,
		TemporaryBlockTTLDays: cfg.TemporaryBlockTTLDays,
		ActiveUserWindowDays:  cfg.ActiveUserWindowDays,
	})
	handler := personalization.NewHandler(engine)
	logger.Info().Msg("✅ Personalization engine ready")

	// 7. Register routes
	logger.Info().Msg("🌐 Step 7: Registering routes...")
	router := mux.NewRouter()
	personalization.RegisterRoutes(router, handler)
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods("GET")
	router.Use(loggingMiddleware(logger))
	router.Use(timeoutMiddleware(cfg.RequestTimeout))
	logger.Info().Msg("✅ Routes registered")

	// 8. Start the daily maintenance scheduler
	logger.Info().Msg("⏰ Step 8: Starting maintenance scheduler...")
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	scheduler := personalization.NewScheduler(engine, logger)
	scheduler.Start(schedCtx)
	logger.Info().Msg("✅ Maintenance scheduler started (daily at 3 AM)")

	// 9. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Msg("========================================")
		logger.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("🚀 Server starting")
		logger.Info().Msg("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("❌ Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("⚠️  Shutdown signal received...")
	schedCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("❌ Server forced to shutdown")
	}

	logger.Info().Msg("✅ Server exited gracefully")
}

// loggingMiddleware logs each request with method, path and duration
func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}

// timeoutMiddleware caps how long a request's storage calls may run by
// deadlining the request context
func timeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		// Durable preference documents, one JSONB doc per user
		`CREATE TABLE IF NOT EXISTS preference_documents (
			user_id BIGINT PRIMARY KEY,
			doc JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Blocklist documents, one JSONB doc per user
		`CREATE TABLE IF NOT EXISTS blocklist_documents (
			user_id BIGINT PRIMARY KEY,
			doc JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Append-only interaction log
		`CREATE TABLE IF NOT EXISTS interaction_log (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			kind VARCHAR(32) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_interaction_log_user_kind
			ON interaction_log (user_id, kind, created_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
