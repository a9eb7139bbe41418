package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/castle/internal/api"
	"github.com/liliang-cn/castle/internal/config"
	"github.com/liliang-cn/castle/internal/loader"
	"github.com/liliang-cn/castle/internal/logging"
	"github.com/liliang-cn/castle/internal/metrics"
	"github.com/liliang-cn/castle/internal/provider"
	"github.com/liliang-cn/castle/internal/repository"
	"github.com/liliang-cn/castle/internal/service"
	"github.com/liliang-cn/castle/internal/vectorstore"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	printBanner()

	m := metrics.New()
	httpClient := provider.NewHTTPClient()

	// Providers
	registry := provider.NewRegistry(
		provider.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, httpClient),
		provider.NewOllama(cfg.Ollama.BaseURL, httpClient),
	)
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, openai: models will fail")
	}

	// Vector store is built on first use so the server starts without it
	store := vectorstore.NewLazy(vectorstore.NewBuilder(cfg, httpClient, logger))
	defer store.Close()

	// Initialize services
	ragService := service.NewRAGService(store, m, logger)
	promptService := service.NewPromptService(repository.NewPromptRepository(cfg.Prompts.Path))

	chatService := service.NewChatService(
		registry,
		ragService,
		promptService,
		cfg.Chat.AllowedModels,
		m,
		logger,
	)

	ingestService := service.NewIngestService(
		store,
		loader.New(httpClient),
		cfg.RAG,
		m,
		logger,
	)

	chainService := service.NewChainService(
		registry,
		ragService,
		cfg.Chains,
		m,
		logger,
	)

	// Setup router
	router, err := api.SetupRouter(api.Services{
		Chat:   chatService,
		Prompt: promptService,
		RAG:    ragService,
		Ingest: ingestService,
		Chain:  chainService,
	}, api.RouterConfig{
		APIKey:       cfg.Server.APIKey,
		AllowOrigins: cfg.Server.AllowOrigins,
		StaticDir:    cfg.Server.StaticDir,
	}, m, logger)
	if err != nil {
		logger.Fatal("Failed to set up router", zap.Error(err))
	}

	// Chat responses stream for as long as the provider does, so there is
	// no write timeout
	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting Castle server",
			zap.String("address", cfg.Address()),
			zap.String("vector_store", cfg.VectorBackend()),
			zap.Strings("allowed_models", cfg.Chat.AllowedModels),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func printBanner() {
	banner := `
   ______           __  __
  / ____/___ ______/ /_/ /__
 / /   / __ ` + "`" + `/ ___/ __/ / _ \
/ /___/ /_/ (__  ) /_/ /  __/
\____/\__,_/____/\__/_/\___/
`

	fmt.Println(banner)
}
