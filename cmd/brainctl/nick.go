package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNickCmd() *cobra.Command {
	nick := &cobra.Command{Use: "nick", Short: "Inspect or change stored nicknames"}

	nick.AddCommand(&cobra.Command{
		Use:   "get <user-id>",
		Short: "Show a user's nickname",
		Args:  cobra.ExactArgs(1),
		RunE: withBrain(func(cmd *cobra.Command, b *brain, args []string) error {
			n, ok := b.nicknames.Get(cmd.Context(), args[0])
			if !ok {
				n = "None"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], n)
			return nil
		}),
	})

	nick.AddCommand(&cobra.Command{
		Use:   "set <user-id> <nickname>",
		Short: "Set a user's nickname",
		Args:  cobra.ExactArgs(2),
		RunE: withBrain(func(cmd *cobra.Command, b *brain, args []string) error {
			b.nicknames.Set(cmd.Context(), args[0], &args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], args[1])
			return nil
		}),
	})

	nick.AddCommand(&cobra.Command{
		Use:   "rm <user-id>",
		Short: "Remove a user's nickname",
		Args:  cobra.ExactArgs(1),
		RunE: withBrain(func(cmd *cobra.Command, b *brain, args []string) error {
			b.nicknames.Set(cmd.Context(), args[0], nil)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: None\n", args[0])
			return nil
		}),
	})

	nick.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Number of users with a nickname record",
		Args:  cobra.NoArgs,
		RunE: withBrain(func(cmd *cobra.Command, b *brain, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), b.nicknames.Count(cmd.Context()))
			return nil
		}),
	})
	return nick
}
