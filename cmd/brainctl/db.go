package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	db := &cobra.Command{Use: "db", Short: "Database maintenance"}

	db.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the database, schema and default settings",
		Args:  cobra.NoArgs,
		RunE: withBrain(func(cmd *cobra.Command, b *brain, _ []string) error {
			s, err := b.store.Settings(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s (version %s)\n", b.store.Path(), s.Version)
			return nil
		}),
	})

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete archived chat messages older than the retention window",
		Args:  cobra.NoArgs,
		RunE: withBrain(func(cmd *cobra.Command, b *brain, _ []string) error {
			window := olderThan
			if window <= 0 {
				window = b.cfg.ChatRetention
			}
			n := b.chat.PruneBefore(cmd.Context(), time.Now().Add(-window))
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d chat message(s) older than %s\n", n, window)
			return nil
		}),
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 0, "retention window (default CHAT_RETENTION)")
	db.AddCommand(prune)
	return db
}
