package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"pngtuber-brain/internal/config"
	"pngtuber-brain/internal/engine"
	"pngtuber-brain/internal/logging"
	"pngtuber-brain/internal/pipeline"
)

// printOutput writes bot replies to the command's stdout.
type printOutput struct {
	mu sync.Mutex
	w  io.Writer
	n  int
}

func (p *printOutput) Say(_ context.Context, _ pipeline.RequestContext, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	fmt.Fprintf(p.w, "[BOT SAYS]: %s\n", text)
}

func (p *printOutput) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func newSimulateCmd() *cobra.Command {
	var (
		user, userID string
		wait         time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate <message...>",
		Short: "Run messages through a local engine and print the replies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			out := &printOutput{w: cmd.OutOrStdout()}
			e := engine.New(engine.OptionsFromConfig(cfg), engine.Deps{Logger: logger, Output: out})
			if err := e.Start(cmd.Context()); err != nil {
				return err
			}
			defer e.Shutdown()

			var ids []string
			for _, msg := range args {
				id, ok := e.Ingest(map[string]any{
					pipeline.ArgUser:    user,
					pipeline.ArgUserID:  userID,
					pipeline.ArgMessage: msg,
				})
				if ok {
					ids = append(ids, id)
				}
			}

			// replies arrive asynchronously
			select {
			case <-time.After(wait):
			case <-cmd.Context().Done():
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d message(s) ingested, %d repl(ies)\n", len(ids), out.count())
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "LocalUser", "display name")
	cmd.Flags().StringVar(&userID, "user-id", "local:1", "platform user ID")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Second, "how long to wait for replies")
	return cmd
}
