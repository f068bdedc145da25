package main

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/miradorstack/atlas/internal/engine"
	"github.com/miradorstack/atlas/internal/jsonl"
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/schema"
	"github.com/miradorstack/atlas/internal/stages"
	"github.com/miradorstack/atlas/internal/utils"
)

func newVerifyGaugeCmd(a *app) *cobra.Command {
	var input, output, thresholdsPath string
	cmd := &cobra.Command{
		Use:   "verify-gauge",
		Short: "Run only the gauge-independence stage over an Observation stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			if thresholdsPath == "" {
				thresholdsPath = a.cfg.Pipeline.Thresholds
			}
			var evaluator *stages.Evaluator
			if thresholdsPath != "" {
				e, _, err := a.evaluator(cmd, thresholdsPath, a.cfg.Pipeline.Profile, a.cfg.Pipeline.Seed)
				if err != nil {
					return a.fail("failed to load thresholds", err)
				}
				evaluator = e
			} else {
				run := provenance.NewRunContext(a.cfg.Pipeline.Seed, provenance.GitCommit(cmd.Context(), "."), "")
				evaluator = stages.NewEvaluator(stages.DefaultConfig(), provenance.NewRecorder(run, nil), a.logger)
			}

			validator, err := schema.New()
			if err != nil {
				return a.fail("failed to compile schemas", err)
			}
			in, err := openInput("open observations", input)
			if err != nil {
				return a.fail("failed to open observations", err)
			}
			defer in.Close()

			records, statuses, err := verifyGauge(a.logger, evaluator, validator, in)
			if err != nil {
				return a.fail("gauge verification failed", err)
			}
			a.logger.Info("gauge verification complete",
				slog.Int("observations", len(records)),
				slog.Int("pass", statuses[models.StatusPass]),
				slog.Int("fail", statuses[models.StatusFail]),
				slog.Int("inconclusive", statuses[models.StatusInconclusive]),
			)
			return a.emit(cmd, output, records...)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Observation stream (NDJSON)")
	cmd.Flags().StringVar(&output, "output", "", "Append tg_ind records here instead of stdout")
	cmd.Flags().StringVar(&thresholdsPath, "thresholds", "", "Thresholds file (defaults when omitted)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// verifyGauge evaluates the tg_ind stage for every line of r. Input lines must
// pass the Observation schema.
func verifyGauge(logger *slog.Logger, e *stages.Evaluator, v *schema.Validator, r io.Reader) ([]models.StageResult, map[models.Status]int, error) {
	p := engine.NewPipeline(logger, e, v, engine.Options{Strict: true})
	reader := jsonl.NewReader(r)
	statuses := make(map[models.Status]int)
	var out []models.StageResult
	for {
		line, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return out, statuses, nil
		}
		if err != nil {
			return nil, nil, utils.NewAppError("verify gauge", "read observations", err)
		}
		obs, err := p.Decode(line.Data)
		if err != nil {
			return nil, nil, utils.NewAppError("verify gauge", "invalid observation", err)
		}
		rec := e.Gauge(obs)
		statuses[rec.Status]++
		out = append(out, rec)
	}
}
