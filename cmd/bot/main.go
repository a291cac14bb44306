package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"pngtuber-brain/internal/config"
	"pngtuber-brain/internal/engine"
	"pngtuber-brain/internal/llm"
	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/metrics"
	"pngtuber-brain/internal/pipeline"
	"pngtuber-brain/internal/scheduler"
	"pngtuber-brain/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.TelegramBotToken == "" {
		logger.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, m, logger)
		defer shutdownServer(srv, logger)
	}

	bot, err := telegram.New(cfg.TelegramBotToken, logger)
	if err != nil {
		logger.Fatal("failed to create bot", zap.Error(err))
	}

	deps := engine.Deps{
		Logger:   logger,
		Output:   pipeline.MultiOutput{pipeline.LogOutput{Logger: logger}, bot.Output()},
		Observer: m,
	}
	factory := llm.NewFactory(cfg)
	provider := string(cfg.LLMProvider)
	if factory.Configured(provider) {
		client, err := factory.CreateClient(provider, cfg.OpenAIModel)
		if err != nil {
			logger.Fatal("failed to create llm client", zap.Error(err))
		}
		deps.LLM = client
		logger.Info("llm enabled for !?", zap.String("provider", provider), zap.String("model", cfg.OpenAIModel))
	}

	brain := engine.New(engine.OptionsFromConfig(cfg), deps)
	if err := brain.Start(ctx); err != nil {
		logger.Fatal("failed to start engine", zap.Error(err))
	}
	defer brain.Shutdown()

	sched := scheduler.New(logger)
	if cfg.ChatRetention > 0 {
		if err := sched.Add(scheduler.JobChatRetention, cfg.RetentionCron,
			scheduler.ChatRetention(brain.Chat(), cfg.ChatRetention, m, logger)); err != nil {
			logger.Fatal("invalid retention schedule", zap.Error(err))
		}
	} else {
		logger.Info("chat retention disabled")
	}
	if err := sched.Add(scheduler.JobKnowledgeRefresh, scheduler.KnowledgeRefreshSpec,
		scheduler.KnowledgeRefresh(brain.Knowledge(), logger)); err != nil {
		logger.Fatal("invalid refresh schedule", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	logger.Info("bot running")
	bot.Start(ctx, brain)
	logger.Info("shutting down")
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics shutdown", zap.Error(err))
	}
}
