package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/swordforge/stylusplugin"
	"github.com/swordforge/stylusplugin/app/logger"
)

var rootCmd = &cobra.Command{
	Use:           "stylus",
	Short:         "Talk to the sword counter Stylus contract configured in Stylus.toml",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to Stylus.toml (default $STYLUS_CONFIG or ./Stylus.toml)")
	flags.String("env-file", stylusplugin.DefaultEnvFile, "env file with PRIVATE_KEY, '-' to skip")
	flags.String("log-level", "info", "log levels, e.g. 'info' or 'stylus*=debug;*=warn'")
	flags.String("log-format", "console", "console, plain or json")
	flags.Duration("timeout", stylusplugin.DefaultConnectTimeout*3, "timeout of one-shot commands")

	rootCmd.AddCommand(configCmd, countsCmd, incrementCmd, runCmd)
}

func setupLogger(cmd *cobra.Command) error {
	levelStr, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	cfg, err := loggerConfig(levelStr, format)
	if err != nil {
		return err
	}
	return cfg.ApplyGlobal()
}

func loggerConfig(levelStr, format string) (logger.Config, error) {
	cfg := logger.Config{Production: true}
	switch strings.ToLower(format) {
	case "json":
		cfg.Format = logger.JSONOutput
	case "plain":
		cfg.Format = logger.PlaintextOutput
	case "console", "":
		cfg.Format = logger.ColorizedOutput
	default:
		return cfg, fmt.Errorf("unknown log format %q", format)
	}
	// "*" keeps its position, the first matching entry wins
	cfg.Levels = logger.LevelsFromStr(levelStr)
	for _, nl := range cfg.Levels {
		if nl.Name == "*" {
			cfg.DefaultLevel = nl.Level
			break
		}
	}
	return cfg, nil
}

func pluginOptions(cmd *cobra.Command) stylusplugin.Options {
	path, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	return stylusplugin.Options{ConfigPath: path, EnvFile: envFile}
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *stylusplugin.BlockchainClient) error) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c, err := stylusplugin.NewBlockchainClient(ctx, pluginOptions(cmd))
	if err != nil {
		return err
	}
	defer c.Close(ctx)
	return fn(ctx, c)
}
