package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tutienrpg/turn-engine/internal/chronicle"
	"github.com/tutienrpg/turn-engine/internal/config"
	"github.com/tutienrpg/turn-engine/internal/engine"
	"github.com/tutienrpg/turn-engine/internal/export"
	"github.com/tutienrpg/turn-engine/internal/handlers"
	"github.com/tutienrpg/turn-engine/internal/logger"
	"github.com/tutienrpg/turn-engine/internal/middleware"
	"github.com/tutienrpg/turn-engine/internal/services"
	"github.com/tutienrpg/turn-engine/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting turn engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var llmService services.LLMService
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		svc, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.ModelName, cfg.EmbeddingModel, log)
		cancel()
		if err != nil {
			log.Error("Failed to initialize Gemini service", "error", err)
			os.Exit(1)
		}
		defer svc.Close()
		llmService = svc
		log.Info("Using Gemini LLM provider")
	case config.ProviderAnthropic:
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		log.Info("Using Anthropic LLM provider")
	case config.ProviderMock:
		llmService = services.NewMockLLM()
		log.Warn("Using mock LLM provider; responses are canned")
	}

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.WorldDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	var archive *chronicle.Store
	if cfg.ChroniclePath != "" {
		var err error
		archive, err = chronicle.Open(cfg.ChroniclePath)
		if err != nil {
			log.Error("Failed to open chronicle archive", "error", err, "path", cfg.ChroniclePath)
			os.Exit(1)
		}
		defer archive.Close()
	}

	eng := engine.New(llmService, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	gameStateHandler := handlers.NewGameStateHandler(store, log)
	mux.Handle("/v1/gamestate", gameStateHandler)
	mux.Handle("/v1/gamestate/", gameStateHandler)

	worldsHandler := handlers.NewWorldsHandler(store, log)
	mux.Handle("/v1/worlds", worldsHandler)

	turnHandler := handlers.NewTurnHandler(store, eng, archive, cfg.HistoryLimit, log)
	mux.Handle("/v1/turn/", turnHandler)

	exportHandler := handlers.NewExportHandler(store, &export.TranscriptPDF{}, log)
	mux.Handle("/v1/export/", exportHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout omitted so SSE turn streams are not cut off
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
