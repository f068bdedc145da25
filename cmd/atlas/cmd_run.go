package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/miradorstack/atlas/internal/engine"
	"github.com/miradorstack/atlas/internal/metrics"
	"github.com/miradorstack/atlas/internal/schema"
	"github.com/miradorstack/atlas/internal/store"
	"github.com/miradorstack/atlas/internal/utils"
)

type runOptions struct {
	input      string
	output     string
	thresholds string
	profile    string
	seed       int64
	workers    int
	strict     bool
	sqlitePath string
	textfile   string
}

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate an Observation stream and append StageResults",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.resolve(cmd, a)
			return a.run(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "Observation stream (NDJSON)")
	f.StringVar(&o.output, "output", "", "StageResult stream to append to (NDJSON)")
	f.StringVar(&o.thresholds, "thresholds", "", "Thresholds file (JSON or YAML)")
	f.StringVar(&o.profile, "profile", "", "Thresholds profile")
	f.Int64Var(&o.seed, "seed", 0, "Random seed")
	f.IntVar(&o.workers, "workers", 0, "Observations evaluated concurrently")
	f.BoolVar(&o.strict, "strict", false, "Abort on the first malformed Observation")
	f.StringVar(&o.sqlitePath, "sqlite", "", "Also append records to this SQLite audit database")
	f.StringVar(&o.textfile, "metrics-textfile", "", "Write run metrics in textfile-collector format")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// resolve fills unset flags from the loaded configuration.
func (o *runOptions) resolve(cmd *cobra.Command, a *app) {
	p := a.cfg.Pipeline
	if o.thresholds == "" {
		o.thresholds = p.Thresholds
	}
	if o.profile == "" {
		o.profile = p.Profile
	}
	if !cmd.Flags().Changed("seed") {
		o.seed = p.Seed
	}
	if o.workers <= 0 {
		o.workers = p.Workers
	}
	if !cmd.Flags().Changed("strict") {
		o.strict = p.Strict
	}
	if o.sqlitePath == "" {
		o.sqlitePath = a.cfg.Store.SQLitePath
	}
	if o.textfile == "" {
		o.textfile = a.cfg.Metrics.Textfile
	}
}

func (a *app) run(cmd *cobra.Command, o *runOptions) error {
	ctx := cmd.Context()
	if o.thresholds == "" {
		return a.fail("thresholds required", utils.MissingInput("load thresholds", "thresholds file", nil))
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return a.fail("failed to register metrics", err)
	}

	evaluator, runCtx, err := a.evaluator(cmd, o.thresholds, o.profile, o.seed)
	if err != nil {
		return a.fail("failed to load thresholds", err)
	}
	validator, err := schema.New()
	if err != nil {
		return a.fail("failed to compile schemas", err)
	}

	in, err := openInput("open observations", o.input)
	if err != nil {
		return a.fail("failed to open observations", err)
	}
	defer in.Close()

	jsonSink, err := store.OpenJSONL(o.output)
	if err != nil {
		return a.fail("failed to open output", err)
	}
	sink := store.MultiSink{jsonSink}
	if o.sqlitePath != "" {
		sqliteSink, err := store.OpenSQLite(ctx, o.sqlitePath, runCtx.RunID)
		if err != nil {
			_ = sink.Close()
			return a.fail("failed to open sqlite store", err)
		}
		sink = append(sink, sqliteSink)
	}

	pipeline := engine.NewPipeline(a.logger, evaluator, validator, engine.Options{
		Workers: o.workers,
		Strict:  o.strict,
	})
	summary, runErr := pipeline.Run(ctx, in, sink)
	if err := sink.Close(); err != nil && runErr == nil {
		runErr = utils.NewAppError("close sinks", o.output, err)
	}

	if o.textfile != "" {
		if err := metrics.WriteTextfile(reg, o.textfile); err != nil {
			a.logger.Warn("failed to write metrics textfile", slog.String("path", o.textfile), slog.Any("error", err))
		}
	}
	if runErr != nil {
		return a.fail("pipeline run failed", runErr)
	}

	a.logger.Info("run finished",
		slog.String("run_id", runCtx.RunID),
		slog.Int("observations", summary.Observations),
		slog.Int("malformed", summary.Malformed),
		slog.Int("records", summary.Records),
		slog.Int("fail", summary.Statuses["FAIL"]),
		slog.Int("warn", summary.Statuses["WARN"]),
	)
	return nil
}
