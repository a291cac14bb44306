package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	chat := &cobra.Command{Use: "chat", Short: "Read the chat archive"}

	var count int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Print the newest archived messages",
		Args:  cobra.NoArgs,
		RunE: withBrain(func(cmd *cobra.Command, b *brain, _ []string) error {
			for _, m := range b.chat.GetRecent(cmd.Context(), count) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"), m.FullText)
			}
			return nil
		}),
	}
	recent.Flags().IntVarP(&count, "count", "n", 20, "number of messages")
	chat.AddCommand(recent)
	return chat
}
