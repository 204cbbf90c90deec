// Fanout-chat is a terminal chat client for fanout relays.
//
// It joins a relay with the shared token and shows everything the relay
// broadcasts, including your own messages as they come back.
//
// Usage:
//
//	fanout-chat [relay-url] [flags]
//	fanout-chat discover
//
// Without a URL the first relay found via mDNS is joined.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/fanout/internal/logging"
	"github.com/muurk/fanout/internal/version"
)

// TokenEnvVar supplies the token without a flag or prompt.
const TokenEnvVar = "FANOUT_TOKEN"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fanout-chat [relay-url]",
	Short: "Terminal chat client for fanout relays",
	Long: `Join a fanout relay and chat with everyone connected to it.

The relay URL may be ws://, wss://, http://, https:// or a bare host:port.
When omitted, the local network is searched via mDNS and the first relay
that answers is joined.

The token is taken from --token, then the FANOUT_TOKEN environment variable,
and otherwise prompted for without echo.`,
	Example: `  # Join a relay by address
  fanout-chat ws://192.168.1.10:8000 --token secret123

  # Find a relay on the local network and pick a nickname
  FANOUT_TOKEN=secret123 fanout-chat --nick ada`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless FANOUT_LOG_LEVEL is set; log lines would corrupt the TUI.
		return logging.InitializeFromEnv()
	},
	RunE: runChat,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fanout-chat %s\n", version.Full())
	},
}
