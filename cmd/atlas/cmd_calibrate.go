package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/atlas/internal/calibrate"
)

func newCalibrateCmd(a *app) *cobra.Command {
	var input, sqlitePath, output string
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Derive error-budget coefficients c_delta and c_n from a record stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(cmd.Context(), input, sqlitePath)
			if err != nil {
				return a.fail("failed to load records", err)
			}
			res := calibrate.Calibrate(records)
			a.logger.Info("calibration complete",
				slog.Int("records", len(records)),
				slog.Int("samples", res.Samples),
				slog.Float64("c_delta", res.CDelta),
				slog.Float64("c_n", res.CN),
			)
			if res.Samples == 0 {
				a.logger.Warn("no anchor carried delta, nmod and htop records")
			}
			if err := writeJSON(cmd.OutOrStdout(), output, res); err != nil {
				return a.fail("failed to write calibration", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "StageResult stream (NDJSON)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Read records from a SQLite audit database instead")
	cmd.Flags().StringVar(&output, "output", "", "Write the result here instead of stdout")
	cmd.MarkFlagsOneRequired("input", "sqlite")
	return cmd
}
