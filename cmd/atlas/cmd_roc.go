package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/miradorstack/atlas/internal/jsonl"
	"github.com/miradorstack/atlas/internal/metrics"
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/roctool"
	"github.com/miradorstack/atlas/internal/schema"
	"github.com/miradorstack/atlas/internal/stats"
	"github.com/miradorstack/atlas/internal/store"
	"github.com/miradorstack/atlas/internal/thresholds"
)

func newROCCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roc",
		Short: "ROC analysis of scores and triage confidence",
	}
	cmd.AddCommand(newROCExternalCmd(a), newROCTriageCmd(a))
	return cmd
}

type rocExternalOptions struct {
	labels     string
	scores     string
	output     string
	anchorID   string
	minAUC     float64
	bootstraps int
	seed       int64
	thresholds string
	textfile   string
}

func newROCExternalCmd(a *app) *cobra.Command {
	o := &rocExternalOptions{}
	cmd := &cobra.Command{
		Use:   "external",
		Short: "Join label and score CSVs and emit a roc StageResult with a bootstrap CI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.rocExternal(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.labels, "labels", "", "CSV of id,label (label 1 is positive)")
	f.StringVar(&o.scores, "scores", "", "CSV of id,score")
	f.StringVar(&o.output, "output", "", "Append the record to this NDJSON stream instead of stdout")
	f.StringVar(&o.anchorID, "anchor-id", roctool.DefaultAnchor, "Anchor identifier of the record")
	f.Float64Var(&o.minAUC, "min-auc", 0, "AUC pass threshold (thresholds roc.min_auc, else 0.75)")
	f.IntVar(&o.bootstraps, "bootstraps", 0, "Bootstrap resamples (config pipeline.bootstrapResamples)")
	f.Int64Var(&o.seed, "seed", 0, "Bootstrap seed")
	f.StringVar(&o.thresholds, "thresholds", "", "Optional thresholds file providing roc.min_auc")
	f.StringVar(&o.textfile, "metrics-textfile", "", "Write bootstrap metrics in textfile-collector format")
	_ = cmd.MarkFlagRequired("labels")
	_ = cmd.MarkFlagRequired("scores")
	return cmd
}

func (a *app) rocExternal(cmd *cobra.Command, o *rocExternalOptions) error {
	if !cmd.Flags().Changed("seed") {
		o.seed = a.cfg.Pipeline.Seed
	}
	if o.bootstraps <= 0 {
		o.bootstraps = a.cfg.Pipeline.BootstrapResamples
	}
	if o.textfile == "" {
		o.textfile = a.cfg.Metrics.Textfile
	}

	var thr thresholds.Thresholds
	if o.thresholds != "" {
		loaded, err := thresholds.Load(o.thresholds, a.cfg.Pipeline.Profile)
		if err != nil {
			return a.fail("failed to load thresholds", err)
		}
		thr = loaded
	}
	if o.minAUC <= 0 {
		o.minAUC = thr.Float(roctool.DefaultMinAUC, "roc", "min_auc")
	}

	labelsFile, err := openInput("read labels", o.labels)
	if err != nil {
		return a.fail("failed to open labels", err)
	}
	defer labelsFile.Close()
	labels, skippedLabels, err := roctool.ReadLabels(labelsFile)
	if err != nil {
		return a.fail("failed to read labels", err)
	}

	scoresFile, err := openInput("read scores", o.scores)
	if err != nil {
		return a.fail("failed to open scores", err)
	}
	defer scoresFile.Close()
	scores, skippedScores, err := roctool.ReadScores(scoresFile)
	if err != nil {
		return a.fail("failed to read scores", err)
	}

	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return a.fail("failed to register metrics", err)
	}

	pairs := roctool.Join(labels, scores)
	run := provenance.NewRunContext(o.seed, provenance.GitCommit(cmd.Context(), "."), thr.SHA256())
	rec := roctool.External(provenance.NewRecorder(run, nil), pairs, roctool.ExternalOptions{
		AnchorID: o.anchorID,
		MinAUC:   o.minAUC,
		Bootstrap: stats.BootstrapOptions{
			Resamples: o.bootstraps,
			Seed:      o.seed,
		},
	})
	a.logger.Info("external roc",
		slog.Int("labels", len(labels)),
		slog.Int("scores", len(scores)),
		slog.Int("skipped_label_rows", skippedLabels),
		slog.Int("skipped_score_rows", skippedScores),
		slog.Int("pairs", len(pairs)),
		slog.String("status", string(rec.Status)),
		slog.Any("auc", rec.Value),
	)

	if err := a.emit(cmd, o.output, rec); err != nil {
		return err
	}
	if o.textfile != "" {
		if err := metrics.WriteTextfile(reg, o.textfile); err != nil {
			a.logger.Warn("failed to write metrics textfile", slog.String("path", o.textfile), slog.Any("error", err))
		}
	}
	return nil
}

// emit validates records and appends them to path, or writes them to stdout.
func (a *app) emit(cmd *cobra.Command, path string, records ...models.StageResult) error {
	validator, err := schema.New()
	if err != nil {
		return a.fail("failed to compile schemas", err)
	}
	for _, r := range records {
		if err := validator.StageResult(r); err != nil {
			return a.fail("record failed schema validation", err)
		}
	}

	if path == "" {
		w := jsonl.NewWriter(cmd.OutOrStdout())
		for _, r := range records {
			if err := w.Write(r); err != nil {
				return a.fail("failed to write record", err)
			}
		}
		return w.Flush()
	}
	sink, err := store.OpenJSONL(path)
	if err != nil {
		return a.fail("failed to open output", err)
	}
	if err := sink.Append(cmd.Context(), records); err != nil {
		_ = sink.Close()
		return a.fail("failed to append record", err)
	}
	return sink.Close()
}

func newROCTriageCmd(a *app) *cobra.Command {
	var input, sqlitePath, output string
	var positives []string
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "ROC of triage confidence against the positive classes",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(cmd.Context(), input, sqlitePath)
			if err != nil {
				return a.fail("failed to load records", err)
			}
			curve := roctool.TriageROC(records, positives)
			a.logger.Info("triage roc",
				slog.Int("pairs", curve.N),
				slog.Int("positives", curve.Positives),
				slog.Float64("auc", curve.AUC),
				slog.Float64("best_J", curve.BestJ),
			)
			if err := writeJSON(cmd.OutOrStdout(), output, curve); err != nil {
				return a.fail("failed to write curve", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "StageResult stream (NDJSON)")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Read records from a SQLite audit database instead")
	cmd.Flags().StringVar(&output, "output", "", "Write the curve here instead of stdout")
	cmd.Flags().StringSliceVar(&positives, "positives", []string{"true_tear"}, "Triage classes counted as positive")
	cmd.MarkFlagsOneRequired("input", "sqlite")
	return cmd
}

