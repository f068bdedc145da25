package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/miradorstack/atlas/internal/config"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stages"
	"github.com/miradorstack/atlas/internal/thresholds"
	"github.com/miradorstack/atlas/internal/utils"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	logJSON    bool

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "atlas",
		Short:         "Per-anchor staged validation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file (ATLAS_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "Emit JSON logs")

	root.AddCommand(
		newRunCmd(a),
		newCalibrateCmd(a),
		newROCCmd(a),
		newVerifyGaugeCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", a.configPath), slog.Any("error", err))
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		cfg.Logging.JSON = a.logJSON
	}
	a.cfg = cfg
	a.logger = utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	return nil
}

// fail logs err once at Error level and returns it for cobra.
func (a *app) fail(msg string, err error) error {
	a.logger.Error(msg, slog.Any("error", err))
	return err
}

// openInput opens a required input file, mapping absence to MissingInput.
func openInput(op, path string) (*os.File, error) {
	if path == "" {
		return nil, utils.MissingInput(op, "(empty path)", nil)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, utils.MissingInput(op, path, err)
		}
		return nil, fmt.Errorf("%s: open %s: %w", op, path, err)
	}
	return f, nil
}

// evaluator loads thresholds and builds the stage evaluator with a fresh RunContext.
func (a *app) evaluator(cmd *cobra.Command, thresholdsPath, profile string, seed int64) (*stages.Evaluator, provenance.RunContext, error) {
	thr, err := thresholds.Load(thresholdsPath, profile)
	if err != nil {
		return nil, provenance.RunContext{}, err
	}
	run := provenance.NewRunContext(seed, provenance.GitCommit(cmd.Context(), "."), thr.SHA256())
	rec := provenance.NewRecorder(run, nil)
	a.logger.Info("run context",
		slog.String("run_id", run.RunID),
		slog.Int64("seed", run.Seed),
		slog.String("commit", run.Commit),
		slog.String("thresholds_sha256", run.ThresholdsSHA256),
	)
	return stages.NewEvaluator(stages.ConfigFrom(thr), rec, a.logger), run, nil
}
