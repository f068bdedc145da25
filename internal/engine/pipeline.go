package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/atlas/internal/jsonl"
	"github.com/miradorstack/atlas/internal/metrics"
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/stages"
	"github.com/miradorstack/atlas/internal/stats"
	"github.com/miradorstack/atlas/internal/utils"
)

// ErrMalformedObservation marks an input line that could not be decoded or
// failed the Observation schema.
var ErrMalformedObservation = errors.New("malformed observation")

// Validator checks records at the pipeline boundary.
type Validator interface {
	Observation(raw []byte) error
	StageResult(r models.StageResult) error
}

// Sink receives the ordered records of one Observation.
type Sink interface {
	Append(ctx context.Context, records []models.StageResult) error
}

// Options tunes Run.
type Options struct {
	// Workers evaluates Observations concurrently; output order is unaffected.
	Workers int
	// Strict aborts the run on the first malformed Observation.
	Strict bool
}

// Pipeline sequences the stage evaluators for each Observation.
type Pipeline struct {
	logger    *slog.Logger
	evaluator *stages.Evaluator
	validator Validator
	opts      Options
	latency   *utils.LatencyTracker
}

// NewPipeline constructs a pipeline. A nil evaluator uses default tolerances;
// a nil validator skips boundary validation.
func NewPipeline(logger *slog.Logger, evaluator *stages.Evaluator, validator Validator, opts Options) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if evaluator == nil {
		evaluator = stages.NewEvaluator(stages.DefaultConfig(), nil, logger)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		logger:    logger,
		evaluator: evaluator,
		validator: validator,
		opts:      opts,
		latency:   utils.NewLatencyTracker(1024),
	}
}

// Evaluate runs every stage for one Observation and returns its records in
// emission order: determinism, delta, nmod, htop, SG-0..SG-3, tg_ind, kms,
// triage, cost_reporting.
func (p *Pipeline) Evaluate(obs models.Observation) []models.StageResult {
	e := p.evaluator
	tracker := stages.StartCost(nil)
	anchor := obs.Anchor()
	sampler := stats.NewSampler(e.Recorder().Run().Seed)

	out := make([]models.StageResult, 0, len(stages.Order))
	out = append(out, e.Determinism(anchor, sampler))

	delta := e.Delta(obs)
	nmod := e.NMod(obs)
	htop := e.HTop(obs, delta, nmod)
	out = append(out, delta, nmod, htop)

	gates := e.ScopeGates(obs, delta, nmod, htop)
	out = append(out, gates[:]...)

	tg := e.Gauge(obs)
	kms := e.Operator(obs)
	out = append(out, tg, kms)

	out = append(out, e.Triage(obs, delta, nmod, htop, tg, kms))
	out = append(out, e.Cost(anchor, tracker))
	return out
}

// Decode parses one input line. Malformed lines still yield the best
// Observation recoverable from them, together with ErrMalformedObservation.
func (p *Pipeline) Decode(line []byte) (models.Observation, error) {
	var obs models.Observation
	decodeErr := json.Unmarshal(line, &obs)
	if decodeErr != nil {
		obs = models.Observation{ID: salvageID(line)}
	}
	var schemaErr error
	if p.validator != nil {
		schemaErr = p.validator.Observation(line)
	}
	if err := errors.Join(decodeErr, schemaErr); err != nil {
		return obs, fmt.Errorf("%w: %w", ErrMalformedObservation, err)
	}
	return obs, nil
}

func salvageID(line []byte) string {
	var raw map[string]any
	if json.Unmarshal(line, &raw) != nil {
		return ""
	}
	for _, key := range []string{"id", "anchor_id"} {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// Summary describes a completed Run.
type Summary struct {
	Observations int
	Malformed    int
	Records      int
	Statuses     map[models.Status]int
	Latency      utils.LatencySummary
}

type evaluated struct {
	line      jsonl.Line
	records   []models.StageResult
	malformed error
	elapsed   time.Duration
}

// Run reads newline-delimited Observations from r, evaluates them and appends
// the validated records to sink in input order. Missing sink, an invalid
// output record or a sink failure abort the run.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, sink Sink) (Summary, error) {
	summary := Summary{Statuses: make(map[models.Status]int)}
	if sink == nil {
		return summary, utils.NewAppError("run pipeline", "no record sink configured", nil)
	}

	reader := jsonl.NewReader(r)
	batchSize := p.opts.Workers * 4
	for {
		batch, readErr := readBatch(reader, batchSize)
		if len(batch) > 0 {
			if err := p.processBatch(ctx, batch, sink, &summary); err != nil {
				summary.Latency = p.latency.Summary()
				return summary, err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			summary.Latency = p.latency.Summary()
			return summary, utils.NewAppError("run pipeline", "read observations", readErr)
		}
	}

	summary.Latency = p.latency.Summary()
	p.logger.Info("pipeline run complete",
		slog.Int("observations", summary.Observations),
		slog.Int("malformed", summary.Malformed),
		slog.Int("records", summary.Records),
		slog.Duration("p50", summary.Latency.P50),
		slog.Duration("p95", summary.Latency.P95),
	)
	return summary, nil
}

func readBatch(reader *jsonl.Reader, size int) ([]jsonl.Line, error) {
	batch := make([]jsonl.Line, 0, size)
	for len(batch) < size {
		line, err := reader.Next()
		if err != nil {
			return batch, err
		}
		batch = append(batch, line)
	}
	return batch, nil
}

func (p *Pipeline) processBatch(ctx context.Context, batch []jsonl.Line, sink Sink, summary *Summary) error {
	results := make([]evaluated, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, line := range batch {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			obs, malformed := p.Decode(line.Data)
			if malformed != nil && p.opts.Strict {
				results[i] = evaluated{line: line, malformed: malformed}
				return nil
			}
			results[i] = evaluated{
				line:      line,
				records:   p.Evaluate(obs),
				malformed: malformed,
				elapsed:   time.Since(start),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		if res.malformed != nil {
			if p.opts.Strict {
				return utils.NewAppError("run pipeline", fmt.Sprintf("line %d", res.line.Number), res.malformed)
			}
			summary.Malformed++
			p.logger.Warn("malformed observation",
				slog.Int("line", res.line.Number),
				slog.Any("error", res.malformed),
			)
		}

		if err := p.seal(res.records); err != nil {
			metrics.ObserveObservation(res.elapsed, metrics.OutcomeError)
			return err
		}
		if err := sink.Append(ctx, res.records); err != nil {
			metrics.ObserveObservation(res.elapsed, metrics.OutcomeError)
			return utils.NewAppError("append records", fmt.Sprintf("line %d", res.line.Number), err)
		}

		outcome := metrics.OutcomeSuccess
		if res.malformed != nil {
			outcome = metrics.OutcomeMalformed
		}
		metrics.ObserveObservation(res.elapsed, outcome)
		p.latency.Observe(res.elapsed)
		for _, r := range res.records {
			metrics.ObserveStage(r.Stage, string(r.Status))
			summary.Statuses[r.Status]++
		}
		summary.Observations++
		summary.Records += len(res.records)
	}
	return nil
}

// seal stamps records at emission time and validates them against the output
// schema.
func (p *Pipeline) seal(records []models.StageResult) error {
	rec := p.evaluator.Recorder()
	for i := range records {
		rec.Stamp(&records[i])
		if p.validator == nil {
			continue
		}
		if err := p.validator.StageResult(records[i]); err != nil {
			return utils.NewAppError("validate record",
				fmt.Sprintf("%s/%s", records[i].AnchorID, records[i].Stage), err)
		}
	}
	return nil
}

// EvaluateLine decodes, evaluates and validates a single Observation outside
// of Run. Malformed input is rejected with ErrMalformedObservation instead of
// being evaluated.
func (p *Pipeline) EvaluateLine(line []byte) ([]models.StageResult, error) {
	start := time.Now()
	obs, err := p.Decode(line)
	if err != nil {
		metrics.ObserveObservation(time.Since(start), metrics.OutcomeMalformed)
		return nil, err
	}
	records := p.Evaluate(obs)
	if err := p.seal(records); err != nil {
		metrics.ObserveObservation(time.Since(start), metrics.OutcomeError)
		return nil, err
	}
	elapsed := time.Since(start)
	metrics.ObserveObservation(elapsed, metrics.OutcomeSuccess)
	p.latency.Observe(elapsed)
	for _, r := range records {
		metrics.ObserveStage(r.Stage, string(r.Status))
	}
	return records, nil
}

// Latency reports the observed per-Observation latency distribution.
func (p *Pipeline) Latency() utils.LatencySummary {
	return p.latency.Summary()
}
