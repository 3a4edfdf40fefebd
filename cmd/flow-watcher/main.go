// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the flow-watcher CLI. It watches a
// Google Drive folder for voice recordings, transcribes them with OpenAI
// and files the transcripts in a Notion database. The notion subcommands
// also export pages to Markdown and write Markdown back as blocks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/thibo73800/flow-watcher/internal/logging"
	"github.com/thibo73800/flow-watcher/internal/metrics"
	"github.com/thibo73800/flow-watcher/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	logger = logging.NewNop()

	// runMetrics is non-nil only when --metrics-file is set.
	runMetrics *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "flow-watcher",
	Short: "Move voice recordings from Google Drive into Notion as transcripts",
	Long: `flow-watcher lists a Google Drive folder, downloads new recordings,
transcribes them with the OpenAI audio API and creates one Notion database
entry per recording. Progress is kept in a local SQLite ledger so repeated
runs only handle new files.

The drive, notion and openai subcommands expose each stage on its own.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		logger = logging.New(level)

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Debug("loaded secrets", "keys", keys)
		}

		if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
			runMetrics = metrics.New()
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("metrics-file")
		return runMetrics.WriteTextfile(path)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./flow-watcher.yaml or ~/.config/flow-watcher/flow-watcher.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file on exit")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("flow-watcher")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "flow-watcher"))
		}
	}

	viper.SetEnvPrefix("FLOW_WATCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// log returns the process logger tagged with the running subcommand.
func log(cmd *cobra.Command) *slog.Logger {
	return logger.With("cmd", cmd.Name())
}
