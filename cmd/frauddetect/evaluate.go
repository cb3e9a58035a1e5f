package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/config"
	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/Veraticus/fraud-detection/internal/engine"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/Veraticus/fraud-detection/internal/network"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func evaluateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [ANALYSIS_FILE]",
		Short: "Score the saved model against an analysis file",
		Long: `Load the saved model and score it once against the test partition of an
analysis file, without training. Use --all to score every record of the file.

The analysis file defaults to analysis_file_path from the configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, v, args)
		},
	}

	cmd.Flags().StringP("model-file", "m", "", "Saved model to score (default: model_file_path)")
	cmd.Flags().Float64("minimum-accuracy", 0, "Accuracy threshold to report against (default: minimum_accuracy_threshold)")
	cmd.Flags().Bool("all", false, "Score every record instead of the test partition")
	cmd.Flags().Bool("strict", false, "Exit with an error when accuracy is below the threshold")

	return cmd
}

func runEvaluate(cmd *cobra.Command, v *viper.Viper, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	analysisFile := v.GetString("analysis_file_path")
	if len(args) == 1 {
		analysisFile = args[0]
	}
	analysisFile = config.ExpandPath(analysisFile)
	if analysisFile == "" {
		return common.NewUserError("no analysis file given", common.ErrMissingConfig)
	}

	modelFile := config.ExpandPath(stringSetting(cmd, v, "model-file", "model_file_path"))
	threshold := v.GetFloat64("minimum_accuracy_threshold")
	if cmd.Flags().Changed("minimum-accuracy") {
		threshold, _ = cmd.Flags().GetFloat64("minimum-accuracy")
	}
	all, _ := cmd.Flags().GetBool("all")
	strict, _ := cmd.Flags().GetBool("strict")

	rng := newRand(v.GetInt64("seed"))
	trainer := network.NewTrainer(dataset.TransactionSchema, rng)
	handle, err := trainer.Load(modelFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return common.NewUserError("no saved model at "+modelFile+"; run train first", common.ErrPersistedModel)
		}
		return fmt.Errorf("%w: %w", common.ErrPersistedModel, err)
	}

	store := newDatasetStore(rng)
	var records []model.TransformedRecord
	if all {
		records, _, err = store.EnsureTransformed(ctx, analysisFile)
	} else {
		var partitioned *model.PartitionedDataset
		partitioned, err = store.Prepare(ctx, analysisFile)
		if partitioned != nil {
			records = partitioned.Evaluation
		}
	}
	if err != nil {
		return fmt.Errorf("failed to prepare %s: %w", analysisFile, err)
	}

	bar := cli.NewProgress(cmd.ErrOrStderr(), len(records), "Scoring records")
	harness := engine.NewHarness(trainer).WithProgress(bar.Set)
	summary, err := harness.Score(ctx, handle, records, dataset.TransactionSchema.LabelIndex)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("failed to evaluate model: %w", err)
	}

	_, _ = fmt.Fprintln(out, cli.FormatTitle("Evaluating "+handle.String()))
	_, _ = fmt.Fprintln(out, cli.FormatSummary(summary, threshold))

	if strict && summary.Accuracy() < threshold {
		return common.NewUserError(
			fmt.Sprintf("accuracy %.4f below threshold %.4f", summary.Accuracy(), threshold),
			nil)
	}
	return nil
}
