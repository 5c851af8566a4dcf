package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"conexiones-backend/application/events"
	"conexiones-backend/application/services/composer"
	"conexiones-backend/domain/story"
	"conexiones-backend/infrastructure/config"
	"conexiones-backend/infrastructure/llm/openai"
	"conexiones-backend/infrastructure/observability"
	"conexiones-backend/infrastructure/persistence/supabase"
	"conexiones-backend/infrastructure/realtime"
	"conexiones-backend/interfaces/http/rest"
	ws "conexiones-backend/interfaces/websocket"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logLevel := zap.NewAtomicLevel()
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel.SetLevel(zapcore.InfoLevel)
	}
	logger, err := buildLogger(cfg, logLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Config hot reload adjusts the log level without a restart.
	if cfg.OverridesFile != "" {
		watcher, err := config.NewWatcher(cfg, logger)
		if err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
		} else {
			watcher.OnChange(func(updated *config.Config) {
				if err := logLevel.UnmarshalText([]byte(updated.LogLevel)); err != nil {
					logger.Warn("invalid log level in updated config",
						zap.String("logLevel", updated.LogLevel))
				}
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	metrics := observability.NewCollector("conexiones")

	// Fragment store
	repo, err := supabase.NewFragmentRepository(cfg.SupabaseURL, cfg.SupabaseKey, cfg.FragmentsTable, metrics, logger)
	if err != nil {
		logger.Fatal("Failed to initialize fragment store", zap.Error(err))
	}

	// Completion provider
	completion := openai.NewClient(cfg.OpenAIAPIKey, logger,
		openai.WithEndpoint(cfg.OpenAIBaseURL),
		openai.WithModel(cfg.DefaultModel),
		openai.WithTemperature(cfg.Temperature),
	)

	// Composition strategy: LLM when a provider key is present, the
	// deterministic template otherwise.
	var strategy composer.Strategy
	if cfg.LLMConfigured() {
		strategy = composer.NewLLMComposer(completion, cfg.DefaultModel)
	} else {
		strategy = composer.NewTemplateComposer(cfg.TemplateSegments)
	}
	logger.Info("composition strategy selected", zap.String("strategy", strategy.Name()))

	// Composer session
	session := composer.NewSession(strategy, repo, cfg.WindowSize, logger)

	// Websocket hub for browser clients
	hub := ws.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	session.OnUpdate(func(composed story.ComposedStory) {
		metrics.StoriesComposed.WithLabelValues(strategy.Name()).Inc()
		if err := hub.Broadcast(ws.EventStoryUpdated, composed); err != nil {
			logger.Warn("failed to broadcast story update", zap.Error(err))
		}
	})

	go session.Run(ctx)

	if err := session.Load(ctx); err != nil {
		logger.Error("initial fragment load failed", zap.Error(err))
	}

	// Live inserts from the store feed the session through the bridge.
	if cfg.RealtimeEnabled {
		subscriber := realtime.NewSubscriber(cfg.SupabaseURL, cfg.SupabaseKey, cfg.FragmentsTable, logger)
		bridge := events.NewBridge(subscriber, session, hub, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error("live-update bridge failed", zap.Error(err))
			}
		}()
	}

	// HTTP server
	router := rest.NewRouter(session, repo, completion, hub, metrics, logger, cfg.EnableCORS)
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	cancel()
	log.Println("Server stopped")
}

func buildLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
