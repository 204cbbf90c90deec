// Fanout-server is a WebSocket broadcast relay.
//
// Clients that present the shared token in the "t" query parameter are
// admitted; every message any of them sends is relayed to all of them,
// the sender included. Clients without a valid token have their connection
// reset before the handshake completes.
//
// Usage:
//
//	fanout-server server [flags]
//
// See 'fanout-server server --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/fanout/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fanout-server",
	Short: "Fanout WebSocket broadcast relay",
	Long: `A token-guarded WebSocket relay that broadcasts every message it receives
to all connected clients, the sender included.

Plain HTTP requests are answered with 426 Upgrade Required. Upgrade requests
must carry the shared token as ?t=<token>; anything else is dropped without
a response.

To join a relay from a terminal, use the separate 'fanout-chat' utility.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fanout-server %s\n", version.Full())
	},
}
