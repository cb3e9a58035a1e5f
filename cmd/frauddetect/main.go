// Package main contains the frauddetect CLI commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "frauddetect",
		Short: "🛡️  Fraud detection model training pipeline",
		Long: `frauddetect prepares transaction exports, trains a feedforward fraud
classifier and keeps retraining until it scores above the configured
accuracy threshold on held-out analysis data.`,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.SetDefaults(v)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/frauddetect/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("database", "", "run history database (default: $HOME/.local/share/frauddetect/history.db)")

	// Bind flags to viper
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("database"))

	rootCmd.AddCommand(trainCmd(v))
	rootCmd.AddCommand(transformCmd(v))
	rootCmd.AddCommand(splitCmd(v))
	rootCmd.AddCommand(evaluateCmd(v))
	rootCmd.AddCommand(historyCmd(v))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	err := newRootCmd(viper.GetViper()).ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(v *viper.Viper, cfgFile string) error {
	// Set up config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		v.AddConfigPath(filepath.Join(home, ".config", "frauddetect"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables, e.g. FRAUD_NETWORK_MAX_EPOCHS
	v.SetEnvPrefix("FRAUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	return setupLogging(v)
}

func setupLogging(v *viper.Viper) error {
	level, err := common.ParseLevel(v.GetString("logging.level"))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if err := common.SetupLogger(level, v.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("Loaded config file", "path", used)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "frauddetect %s\n", version)
		},
	}
}
