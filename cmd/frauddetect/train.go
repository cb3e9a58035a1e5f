package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/config"
	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/Veraticus/fraud-detection/internal/engine"
	"github.com/Veraticus/fraud-detection/internal/metrics"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func trainCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a fraud model until it meets the accuracy threshold",
		Long: `Prepare the training and analysis files, then train (or load) a model
and score it against the analysis data. Training repeats until the model's
accuracy reaches the minimum threshold.

Examples:
  frauddetect train --training-file orders.csv --analysis-file march.csv
  frauddetect train --retrain --max-iterations 5
  frauddetect train --verbose --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, v)
		},
	}

	// Flags
	cmd.Flags().StringP("training-file", "t", "", "Raw training file")
	cmd.Flags().StringP("analysis-file", "a", "", "Raw analysis file")
	cmd.Flags().StringP("model-file", "m", "", "Where the accepted model is saved and loaded from")
	cmd.Flags().Float64("minimum-accuracy", 0, "Accuracy required to accept a model (0,1]")
	cmd.Flags().Bool("persist", true, "Save the accepted model and reuse it on the next run")
	cmd.Flags().Bool("retrain", false, "Train a new model even when a saved one exists")
	cmd.Flags().Int("folds", 0, "Cross-validation folds")
	cmd.Flags().Int("max-iterations", 0, "Give up after this many iterations (0 = never)")
	cmd.Flags().Int64("seed", 0, "Random seed for splits and training (0 = clock)")
	cmd.Flags().BoolP("verbose", "v", false, "Print every training epoch")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = v.BindPFlag("training_file_path", cmd.Flags().Lookup("training-file"))
	_ = v.BindPFlag("analysis_file_path", cmd.Flags().Lookup("analysis-file"))
	_ = v.BindPFlag("model_file_path", cmd.Flags().Lookup("model-file"))
	_ = v.BindPFlag("minimum_accuracy_threshold", cmd.Flags().Lookup("minimum-accuracy"))
	_ = v.BindPFlag("persist_model", cmd.Flags().Lookup("persist"))
	_ = v.BindPFlag("retrain_model", cmd.Flags().Lookup("retrain"))
	_ = v.BindPFlag("training_folds", cmd.Flags().Lookup("folds"))
	_ = v.BindPFlag("max_iterations", cmd.Flags().Lookup("max-iterations"))
	_ = v.BindPFlag("seed", cmd.Flags().Lookup("seed"))
	_ = v.BindPFlag("verbose_mode", cmd.Flags().Lookup("verbose"))
	_ = v.BindPFlag("metrics_file", cmd.Flags().Lookup("metrics-file"))

	return cmd
}

func runTrain(cmd *cobra.Command, v *viper.Viper) error {
	settings, err := config.Load(v)
	if err != nil {
		return common.NewUserError("invalid settings", err)
	}

	out := cmd.OutOrStdout()
	interrupts := cli.NewInterruptHandler(out, "Training").
		WithHint("Derived dataset files are kept and reused on the next run")
	ctx, stop := interrupts.HandleInterrupts(cmd.Context())
	defer stop()

	_, _ = fmt.Fprintln(out, cli.FormatTitle("Fraud model training"))

	history, err := openHistory(ctx, v)
	if err != nil {
		return err
	}
	defer closeHistory(history)

	var spinner *cli.Progress
	if !settings.VerboseMode {
		spinner = cli.NewSpinner(cmd.ErrOrStderr(), "Preparing datasets")
	}

	rng := newRand(settings.Seed)
	store := newDatasetStore(rng)
	trainer := newTrainer(settings, rng, epochReporter(out, settings.VerboseMode, spinner))
	harness := engine.NewHarness(trainer).WithProgress(func(done, total int) {
		if done == 1 || done == total {
			spinner.Describe(fmt.Sprintf("Scoring %d analysis records", total))
		}
		if done%256 == 0 || done == total {
			spinner.Tick()
		}
	})

	m := metrics.New()
	opts := []engine.ControllerOption{
		engine.WithMetrics(m),
		engine.WithHarness(harness),
		engine.WithRetryPolicy(engine.MaxIterations(settings.MaxIterations)),
		engine.WithStateObserver(func(state model.State) {
			if state == model.StateLoading {
				spinner.Describe("Loading saved model")
			}
		}),
	}
	if history != nil {
		opts = append(opts, engine.WithRecorder(history))
	}

	controller := engine.NewController(trainer, store, opts...)
	outcome, runErr := controller.Run(ctx, engine.Options{
		TrainingFile:    settings.TrainingFilePath,
		AnalysisFile:    settings.AnalysisFilePath,
		ModelFile:       settings.ModelFilePath,
		MinimumAccuracy: settings.MinimumAccuracyThreshold,
		LabelIndex:      dataset.TransactionSchema.LabelIndex,
		PersistModel:    settings.PersistModel,
		RetrainModel:    settings.RetrainModel,
	})
	spinner.Finish()

	if err := m.WriteTextfile(settings.MetricsFile); err != nil {
		common.LogError(err, "Failed to write metrics", common.Fields{"path": settings.MetricsFile})
	}

	if runErr != nil {
		if errors.Is(runErr, common.ErrIterationLimit) {
			_, _ = fmt.Fprintln(out, cli.FormatSummary(outcome.Summary, settings.MinimumAccuracyThreshold))
		}
		if interrupts.WasInterrupted() {
			slog.Warn("Training interrupted", "run_id", outcome.Run.ID)
		}
		return fmt.Errorf("training run %s failed: %w", outcome.Run.ID, runErr)
	}

	_, _ = fmt.Fprintln(out, cli.FormatSummary(outcome.Summary, settings.MinimumAccuracyThreshold))
	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Accepted %s after %d iteration(s)",
		outcome.Handle.String(), outcome.Run.Iterations)))
	if outcome.Run.Persisted {
		_, _ = fmt.Fprintln(out, cli.FormatInfo("Model saved to "+settings.ModelFilePath))
	}
	return nil
}
