package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pngtuber-brain/internal/cache"
	"pngtuber-brain/internal/config"
	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/repository"
	"pngtuber-brain/internal/storage"
)

// brain is the storage stack shared by the offline subcommands.
type brain struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *storage.Store
	cache     *cache.Cache
	knowledge *repository.KnowledgeRepository
	chat      *repository.ChatMessageRepository
	nicknames *repository.NicknameRepository
}

func openBrain(ctx context.Context) (*brain, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	store := storage.New(storage.Options{
		Path:        cfg.DBPath(),
		LockDir:     cfg.DBLockDir,
		LockName:    cfg.DBLockName,
		LockTimeout: cfg.DBLockTimeout,
		Logger:      logger,
	})
	if err := store.Bootstrap(ctx, cfg.BootstrapLockTimeout); err != nil {
		return nil, err
	}
	c := cache.New(cache.DefaultTTL)
	return &brain{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		cache:     c,
		knowledge: repository.NewKnowledgeRepository(c, store, logger),
		chat:      repository.NewChatMessageRepository(store, logger),
		nicknames: repository.NewNicknameRepository(c, store, logger),
	}, nil
}

func (b *brain) close() {
	b.cache.Close()
	_ = b.logger.Sync()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brainctl",
		Short:         "Inspect and maintain the PNGTuber brain database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			envFile, _ := cmd.Flags().GetString("env-file")
			_ = godotenv.Load(envFile)
		},
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading configuration")

	root.AddCommand(newDBCmd(), newFactsCmd(), newChatCmd(), newNickCmd(), newSimulateCmd())
	return root
}

// withBrain adapts a brain-using function to cobra.
func withBrain(fn func(cmd *cobra.Command, b *brain, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		b, err := openBrain(cmd.Context())
		if err != nil {
			return fmt.Errorf("open brain: %w", err)
		}
		defer b.close()
		return fn(cmd, b, args)
	}
}
