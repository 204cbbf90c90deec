package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/fanout/internal/client"
	"github.com/muurk/fanout/internal/discovery"
	"github.com/muurk/fanout/internal/logging"
	"github.com/muurk/fanout/internal/ui"
	"github.com/muurk/fanout/internal/version"
)

// Chat flags
var (
	token       string
	nick        string
	instance    string
	insecure    bool
	scanTimeout time.Duration
)

func init() {
	rootCmd.Flags().StringVar(&token, "token", "", "Relay token (default: $FANOUT_TOKEN, else prompt)")
	rootCmd.Flags().StringVar(&nick, "nick", "", "Prefix your messages with this name")
	rootCmd.Flags().StringVar(&instance, "instance", "", "mDNS instance to join when no URL is given (default: first found)")
	rootCmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification (self-signed relays)")
	rootCmd.PersistentFlags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "mDNS discovery timeout")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	printer := ui.NewPrinter(cmd.ErrOrStderr())

	target, err := resolveTarget(ctx, args)
	if err != nil {
		printer.PrintError("No relay to join", err, []string{
			"Pass the relay URL as an argument",
			"Start the server with --advertise to make it discoverable",
			"mDNS needs multicast (UDP 5353) on the local network",
		})
		return err
	}

	secret, err := resolveToken()
	if err != nil {
		return err
	}

	c, err := client.Dial(ctx, target, client.Options{
		Token:              secret,
		UserAgent:          version.UserAgent("fanout-chat"),
		InsecureSkipVerify: insecure,
	})
	if err != nil {
		tips := []string{"Check the relay address and that the server is running"}
		if errors.Is(err, client.ErrNoHandshake) {
			tips = append([]string{"The relay drops connections with a wrong token; check --token or $" + TokenEnvVar}, tips...)
		}
		printer.PrintError("Connection failed", err, tips)
		return err
	}
	defer c.Close()

	return ui.RunChat(ui.ChatOptions{
		Sender:   c,
		Messages: c.Messages(),
		Err:      c.Err,
		URL:      c.URL(),
		Nick:     nick,
	})
}

// resolveTarget returns the URL argument, or discovers a relay.
func resolveTarget(ctx context.Context, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	fmt.Fprintln(os.Stderr, ui.MutedStyle.Render("Searching for relays on the local network..."))
	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout

	relay, err := scanner.Find(ctx, instance)
	if err != nil {
		return "", err
	}
	logging.Debug("Discovered relay",
		zap.String("instance", relay.Instance),
		zap.String("url", relay.URL()),
	)
	fmt.Fprintln(os.Stderr, ui.MutedStyle.Render("Joining "+relay.String()))
	return relay.URL(), nil
}

// resolveToken picks the token from the flag, the environment or a prompt.
func resolveToken() (string, error) {
	if token != "" {
		return token, nil
	}
	if env := os.Getenv(TokenEnvVar); env != "" {
		return env, nil
	}
	return ui.PromptToken(os.Stdin, os.Stderr)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List relays advertised on the local network",
	RunE:  runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	relays, err := discovery.Scan(ctx, scanTimeout)
	if err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintRelays(relays)
	return nil
}
