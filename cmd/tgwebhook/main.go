package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tgwebhook",
		Short: "Telegram webhook server",
		Long: `tgwebhook receives Telegram Bot API updates over HTTP(S) and answers
them from the webhook response. The bundled bot echoes messages back.

Configuration is read from WEBHOOK_* and LOG_* environment variables
and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
