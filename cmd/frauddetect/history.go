package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/Veraticus/fraud-detection/internal/common"
	"github.com/Veraticus/fraud-detection/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func historyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List past training runs",
		Long: `List recorded training runs, newest first. Given a run ID, show every
iteration of that run with its confusion counts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runHistory(cmd, v, args, limit)
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, v *viper.Viper, args []string, limit int) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	history, err := openHistory(ctx, v)
	if err != nil {
		return err
	}
	if history == nil {
		return common.NewUserError("run history is disabled (database_path is empty)", common.ErrMissingConfig)
	}
	defer closeHistory(history)

	if len(args) == 0 {
		runs, err := history.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatRuns(runs))
		return nil
	}

	run, err := history.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	iterations, err := history.ListIterations(ctx, run.ID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, cli.RenderBox("Run "+run.ID, describeRun(run, iterations)))
	return nil
}

func describeRun(run *model.Run, iterations []model.Iteration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "State:     %s\n", run.State)
	fmt.Fprintf(&b, "Started:   %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Finished:  %s\n", run.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(&b, "Training:  %s\n", run.TrainingFile)
	fmt.Fprintf(&b, "Analysis:  %s\n", run.AnalysisFile)
	fmt.Fprintf(&b, "Model:     %s (persisted: %t)\n", run.ModelFile, run.Persisted)
	fmt.Fprintf(&b, "Threshold: %.4f\n", run.MinimumAccuracy)
	if run.Error != "" {
		fmt.Fprintf(&b, "Error:     %s\n", cli.ErrorStyle.Render(run.Error))
	}

	for _, it := range iterations {
		marker := " "
		if it.Accepted {
			marker = cli.SuccessIcon
		}
		fmt.Fprintf(&b, "\n%s #%d %s %s accuracy %.4f in %s\n   %s",
			marker, it.Number, strings.ToLower(string(it.Source)), it.Model, it.Accuracy,
			it.Duration.Round(time.Millisecond), it.Summary.String())
	}
	return strings.TrimRight(b.String(), "\n")
}
