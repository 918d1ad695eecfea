package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/diagchan/internal/app"
	"github.com/wippyai/diagchan/internal/config"
)

const version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:           "diagchan",
	Short:         "Diagnostics channel realm runner",
	Long:          "diagchan drives synthetic traffic through a diagnostics channel realm and inspects its snapshots.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.yaml, .yml or .toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(inspectCmd)
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	return a, nil
}
