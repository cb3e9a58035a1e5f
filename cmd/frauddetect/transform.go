package main

import (
	"fmt"

	"github.com/Veraticus/fraud-detection/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func transformCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform FILE...",
		Short: "Expand raw transaction files into model columns",
		Long: `Transform each raw file into <name>-transformed.csv next to it. The
address field becomes four octets and the timestamp becomes seconds of day,
day of month, day of week and month.

An existing -transformed file is reused unless --force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return runTransform(cmd, v, args, force)
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Rebuild derived files even when they exist")

	return cmd
}

func runTransform(cmd *cobra.Command, v *viper.Viper, files []string, force bool) error {
	out := cmd.OutOrStdout()
	store := newDatasetStore(newRand(v.GetInt64("seed")))

	for _, file := range files {
		if force {
			if err := store.Invalidate(file); err != nil {
				return err
			}
		}

		records, path, err := store.EnsureTransformed(cmd.Context(), file)
		if err != nil {
			return fmt.Errorf("failed to transform %s: %w", file, err)
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d records -> %s", file, len(records), path)))
	}
	return nil
}
