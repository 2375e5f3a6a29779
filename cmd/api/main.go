package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/careflow/appointment-agent/internal/api/router"
	"github.com/careflow/appointment-agent/internal/booking"
	"github.com/careflow/appointment-agent/internal/calendar"
	appconfig "github.com/careflow/appointment-agent/internal/config"
	"github.com/careflow/appointment-agent/internal/conversation"
	"github.com/careflow/appointment-agent/internal/directory"
	"github.com/careflow/appointment-agent/internal/observability/metrics"
	"github.com/careflow/appointment-agent/internal/triage"
	"github.com/careflow/appointment-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting appointment-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Configuration errors are the one class that halts the process instead
	// of degrading a session.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dir, err := loadDirectory(cfg)
	if err != nil {
		logger.Error("failed to load provider directory", "error", err)
		os.Exit(1)
	}

	calendarClient, err := calendar.NewGoogleClient(ctx, cfg.GoogleCredentialsFile)
	if err != nil {
		logger.Error("failed to connect to calendar backend", "error", err)
		os.Exit(1)
	}

	m := metrics.NewSchedulerMetrics(nil)
	classifier := triage.NewClassifier(buildLLM(ctx, cfg, logger), logger, m)

	bookingService := booking.NewService(dir, calendarClient, logger, m, booking.Options{
		Location:     cfg.Location(),
		Workday:      booking.Hours{StartHour: cfg.WorkdayStartHour, EndHour: cfg.WorkdayEndHour},
		SlotDuration: cfg.SlotDuration,
	})

	store, err := buildSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect session store", "error", err)
		os.Exit(1)
	}

	controller := conversation.NewController(store, classifier, dir, bookingService, logger, m)
	sessionHandler := conversation.NewHandler(controller, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		SessionHandler:     sessionHandler,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

func loadDirectory(cfg *appconfig.Config) (*directory.Directory, error) {
	if cfg.ProvidersFile != "" {
		return directory.LoadFile(cfg.ProvidersFile)
	}
	return directory.New(directory.DefaultProviders())
}

// buildLLM assembles the classification stack: Gemini primary, OpenAI
// fallback when configured. With no usable provider the classifier runs on
// its safe default and symptom routing goes to the general practitioner.
func buildLLM(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) triage.LLMClient {
	var primary triage.LLMClient
	if cfg.GeminiAPIKey != "" {
		gemini, err := triage.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else {
			primary = gemini
		}
	}

	var fallback triage.LLMClient
	if cfg.OpenAIAPIKey != "" {
		openAI, err := triage.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			logger.Warn("openai client unavailable", "error", err)
		} else {
			fallback = openAI
		}
	}

	switch {
	case primary != nil && fallback != nil:
		return triage.NewFallbackLLMClient(primary, fallback, logger.Logger)
	case primary != nil:
		return primary
	case fallback != nil:
		return fallback
	default:
		logger.Warn("no classification provider configured, triage will use the safe default")
		return nil
	}
}

func buildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (conversation.SessionStore, error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory session store")
		return conversation.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("using redis session store", "addr", cfg.RedisAddr)
	return conversation.NewRedisStore(client), nil
}
