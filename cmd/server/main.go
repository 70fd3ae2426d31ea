package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"buzzrunner/internal/api"
	"buzzrunner/internal/platform"
	"buzzrunner/internal/ratelimit"
	"buzzrunner/internal/runner"
	"buzzrunner/internal/sessionstore"
)

func main() {
	logOut := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	log := zerolog.New(logOut).With().Timestamp().Logger()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment variables")
	}

	level, err := zerolog.ParseLevel(envStr("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	log = log.Level(level)

	sessionsDir := envStr("SESSIONS_DIR", "./storage/sessions")
	store, err := sessionstore.New(sessionsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create session store")
	}
	log.Info().Str("dir", sessionsDir).Msg("session store initialized")

	runMgr := runner.NewManager(runner.ManagerConfig{
		MaxConcurrentRuns: int64(envInt("MAX_CONCURRENT_RUNS", 2)),
		LogOut:            logOut,
		LogLevel:          level,
	}, runner.New(platform.NewWebClient, store), log)
	log.Info().Msg("run manager initialized")

	requestsPerHour := envInt("RATE_LIMIT_PER_HOUR", 100)
	rateLimiter := ratelimit.NewLimiter(requestsPerHour, envInt("RATE_LIMIT_BURST", 10))
	log.Info().Int("per_hour", requestsPerHour).Msg("rate limiter initialized")

	handler := api.NewHandler(runMgr, log)
	router := handler.SetupRoutes(rateLimiter, requestsPerHour)
	log.Info().Msg("HTTP routes configured")

	addr := envStr("LISTEN_ADDR", ":8080")
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Synchronous runs can legitimately take minutes; no write timeout.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	runMgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped cleanly")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
