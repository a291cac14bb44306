package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/config"
	"pngtuber-brain/internal/knowledgemcp"
	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/repository"
	"pngtuber-brain/internal/storage"
)

// Serves the knowledge base over MCP on stdin/stdout. Logs go to stderr.
func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}
	cfg := config.New()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := storage.New(storage.Options{
		Path:        cfg.DBPath(),
		LockDir:     cfg.DBLockDir,
		LockName:    cfg.DBLockName,
		LockTimeout: cfg.DBLockTimeout,
		Logger:      logger,
	})
	if err := store.Bootstrap(ctx, cfg.BootstrapLockTimeout); err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	settings, err := store.Settings(ctx)
	if err != nil {
		settings = storage.DefaultSettings()
	}

	c := cache.New(cache.DefaultTTL)
	defer c.Close()
	srv := knowledgemcp.New(
		repository.NewKnowledgeRepository(c, store, logger),
		repository.NewChatMessageRepository(store, logger),
		logger,
	)
	server := knowledgemcp.NewMCPServer(srv, settings.Version)

	logger.Info("knowledge MCP server listening on stdio", zap.String("db", store.Path()))
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
