package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/dkhr/sage-bot/internal/bot"
	"github.com/dkhr/sage-bot/internal/llm"
	"github.com/dkhr/sage-bot/internal/search"
	"github.com/dkhr/sage-bot/internal/storage"
	"github.com/dkhr/sage-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize adapters
	model := llm.NewClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.AssistantID,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
		cfg.OpenAI.RequestTimeout,
		logger,
	)
	searcher := search.NewClient(cfg.Search.BaseURL, cfg.Search.UserAgent, cfg.Search.Timeout)

	// Initialize bot
	opts := bot.Options{
		MaxSearchResults:      cfg.Search.MaxResults,
		MaxConcurrentHandlers: cfg.Bot.MaxConcurrentHandlers,
	}
	b, err := bot.New(cfg.Telegram.Token, store, model, searcher, opts, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot and stop it gracefully on SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		b.Stop()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Bot error", zap.Error(err))
		}
	}
}
