package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for wbwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wbwatch",
		Short: "Wildberries price watcher with a Telegram bot",
		Long: `wbwatch watches Wildberries prices for a list of products managed through
a Telegram bot and posts offers that fall inside each product's price window
to a notification channel.

Run without a subcommand it starts the bot and the price monitor, the same
as "wbwatch serve". Configuration comes from the environment and an optional
.env file in the working directory.`,
		Version:       getVersion(),
		Args:          cobra.NoArgs,
		RunE:          runServeCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewCookiesCmd())
	cmd.AddCommand(NewProductsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
