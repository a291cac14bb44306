package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFactsCmd() *cobra.Command {
	facts := &cobra.Command{Use: "facts", Short: "Manage the knowledge base"}

	facts.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every fact",
		Args:  cobra.NoArgs,
		RunE: withBrain(func(cmd *cobra.Command, b *brain, _ []string) error {
			all := b.knowledge.GetAllFacts(cmd.Context())
			for _, f := range all {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(by %s)\n", f.Key, f.Content, f.CreatedBy)
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no facts")
			}
			return nil
		}),
	})

	facts.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Show one fact",
		Args:  cobra.ExactArgs(1),
		RunE: withBrain(func(cmd *cobra.Command, b *brain, args []string) error {
			found := b.knowledge.SearchFacts(cmd.Context(), args[0])
			if len(found) == 0 {
				return fmt.Errorf("no fact for %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", found[0].Key, found[0].Content)
			return nil
		}),
	})

	var author string
	add := &cobra.Command{
		Use:   "add <key> <content...>",
		Short: "Teach or replace a fact",
		Args:  cobra.MinimumNArgs(2),
		RunE: withBrain(func(cmd *cobra.Command, b *brain, args []string) error {
			content := strings.TrimSpace(strings.Join(args[1:], " "))
			if content == "" {
				return errors.New("content is empty")
			}
			b.knowledge.AddFact(cmd.Context(), args[0], content, author)
			fmt.Fprintf(cmd.OutOrStdout(), "Memorized: %s\n", args[0])
			return nil
		}),
	}
	add.Flags().StringVar(&author, "by", "brainctl", "author recorded with the fact")
	facts.AddCommand(add)

	facts.AddCommand(&cobra.Command{
		Use:     "rm <key>",
		Aliases: []string{"forget"},
		Short:   "Delete a fact",
		Args:    cobra.ExactArgs(1),
		RunE: withBrain(func(cmd *cobra.Command, b *brain, args []string) error {
			if !b.knowledge.RemoveFact(cmd.Context(), args[0]) {
				return fmt.Errorf("no fact for %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot: %s\n", args[0])
			return nil
		}),
	})
	return facts
}
