package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/Veraticus/fraud-detection/internal/config"
	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/Veraticus/fraud-detection/internal/network"
	"github.com/Veraticus/fraud-detection/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRand returns a source seeded with seed, or with the clock when seed is 0.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	slog.Debug("Seeded random source", "seed", seed)
	return rand.New(rand.NewSource(seed)) //nolint:gosec // sampling, not security
}

// newDatasetStore builds the store that transforms and partitions raw files.
func newDatasetStore(rng *rand.Rand) *dataset.Store {
	return dataset.NewStore(
		dataset.NewTransformer(),
		dataset.NewSplitter(),
		dataset.TransactionSchema,
		rng,
	)
}

// newTrainer builds the feedforward trainer from settings. progress receives
// every epoch; nil disables reporting.
func newTrainer(settings *config.Settings, rng *rand.Rand, progress func(network.EpochStatus)) *network.Trainer {
	cfg := network.DefaultConfig()
	cfg.HiddenNeurons = settings.Network.HiddenNeurons
	cfg.MaxEpochs = settings.Network.MaxEpochs
	cfg.Holdback = settings.Network.Holdback
	cfg.Patience = settings.Network.Patience
	cfg.Folds = settings.TrainingFolds
	cfg.Progress = progress
	return network.NewTrainerWithConfig(dataset.TransactionSchema, rng, cfg)
}

// epochReporter returns the trainer callback for the chosen output mode:
// a line per epoch when verbose, otherwise a spinner tick.
func epochReporter(w io.Writer, verbose bool, spinner *cli.Progress) func(network.EpochStatus) {
	if verbose {
		return func(status network.EpochStatus) {
			_, _ = fmt.Fprintf(w, "Fold %d/%d epoch #%d training error: %.6f, validation error: %.6f\n",
				status.Fold, status.Folds, status.Epoch, status.TrainingError, status.ValidationError)
		}
	}
	return func(status network.EpochStatus) {
		spinner.Describe(fmt.Sprintf("Training fold %d/%d", status.Fold, status.Folds))
		spinner.Tick()
	}
}

// openHistory opens the run history database, or returns nil when history is
// disabled by an empty path.
func openHistory(ctx context.Context, v *viper.Viper) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(v.GetString("database_path"))
	if dbPath == "" {
		return nil, nil
	}

	store, err := storage.Open(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	slog.Debug("Opened history database", "path", dbPath)
	return store, nil
}

func closeHistory(store *storage.SQLiteStorage) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		slog.Error("Failed to close database", "error", err)
	}
}

// stringSetting prefers a flag the user set on cmd over the configured key.
// Commands sharing a key with train read their own flag this way instead of
// rebinding it.
func stringSetting(cmd *cobra.Command, v *viper.Viper, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		value, _ := cmd.Flags().GetString(flag)
		return value
	}
	return v.GetString(key)
}
