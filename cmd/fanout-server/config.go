package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/fanout/internal/config"
)

var (
	configOutput string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the relay configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file with a fresh random token",
	Example: `  # Write to the default location
  fanout-server config init

  # Write somewhere else, replacing an existing file
  fanout-server config init --output ./fanout.yaml --force`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration (token redacted)",
	RunE:  runConfigShow,
}

func init() {
	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", "", "Output path (default: OS config dir)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configOutput
	if path == "" {
		var err error
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Token = uuid.NewString()

	if err := cfg.Save(path); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	fmt.Fprintf(out, "Clients connect with ws://<host>:%d/?t=%s\n", cfg.Port, cfg.Token)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: configPath, EnvFile: envFile})
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	shown := *cfg
	if shown.Token != "" {
		shown.Token = "<redacted>"
	}

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nWarning: %v\n", err)
	}
	return nil
}
