package main

import (
	"fmt"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/Veraticus/fraud-detection/internal/dataset"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func splitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split FILE...",
		Short: "Transform raw files and split them into training and test partitions",
		Long: `Transform each raw file and split it into <name>-trainingData.csv and
<name>-testData.csv. 90% of fraud rows and 98% of honest rows are held out
for testing; the rest go to training.

Examples:
  frauddetect split orders.csv
  frauddetect split --force --seed 7 orders.csv march.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return runSplit(cmd, v, args, force)
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Rebuild derived files even when they exist")
	cmd.Flags().Int64("seed", 0, "Random seed for the split (0 = clock)")

	return cmd
}

func runSplit(cmd *cobra.Command, v *viper.Viper, files []string, force bool) error {
	out := cmd.OutOrStdout()

	// "seed" is bound to the train flag, so a split seed is read directly.
	seed := v.GetInt64("seed")
	if cmd.Flags().Changed("seed") {
		seed, _ = cmd.Flags().GetInt64("seed")
	}
	store := newDatasetStore(newRand(seed))

	for _, file := range files {
		if force {
			if err := store.Invalidate(file); err != nil {
				return err
			}
		}

		partitioned, err := store.Prepare(cmd.Context(), file)
		if err != nil {
			return fmt.Errorf("failed to split %s: %w", file, err)
		}

		_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d training, %d test records",
			file, len(partitioned.Training), len(partitioned.Evaluation))))
		_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("  "+dataset.DerivedPath(file, dataset.TrainingSuffix)))
		_, _ = fmt.Fprintln(out, cli.SubtleStyle.Render("  "+dataset.DerivedPath(file, dataset.EvaluationSuffix)))
	}
	return nil
}
