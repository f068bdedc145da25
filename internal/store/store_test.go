package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

func sampleRecords() []models.StageResult {
	rec := provenance.NewRecorder(provenance.NewRunContext(42, "abc", "sha"), nil)
	return []models.StageResult{
		rec.Record(provenance.Entry{AnchorID: "a", Stage: "delta", Status: models.StatusWarn, Metric: "delta_chart", Value: provenance.Num(0.2), Threshold: provenance.Num(0.15), Aux: map[string]any{"tau_delta": 0.15}}),
		rec.Record(provenance.Entry{AnchorID: "a", Stage: "cost_reporting", Status: models.StatusPass, Metric: "wall_seconds", Cost: provenance.Num(0.01)}),
	}
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "audit.db"), "run-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()

	if err := sink.Append(ctx, sampleRecords()); err != nil {
		t.Fatalf("append: %v", err)
	}
	all, err := sink.Records(ctx, "")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].Stage != "delta" || all[0].ValueOr(0) != 0.2 || all[0].Status != models.StatusWarn {
		t.Fatalf("unexpected first record %+v", all[0])
	}
	if all[1].Value != nil || all[1].Cost == nil {
		t.Fatalf("expected null value and cost set, got %+v", all[1])
	}

	costOnly, err := sink.Records(ctx, "cost_reporting")
	if err != nil || len(costOnly) != 1 {
		t.Fatalf("expected one cost record, got %d %v", len(costOnly), err)
	}
}

func TestSQLiteSinkIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "audit.db"), "run-1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sink.Close()
	if err := sink.Append(ctx, sampleRecords()); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := sink.DB().ExecContext(ctx, `UPDATE stage_results SET status = 'PASS'`); err == nil {
		t.Fatalf("expected update to be rejected")
	}
	if _, err := sink.DB().ExecContext(ctx, `DELETE FROM stage_results`); err == nil {
		t.Fatalf("expected delete to be rejected")
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) Append(context.Context, []models.StageResult) error {
	return errors.New("disk full")
}

func (f *failingSink) Close() error {
	f.closed = true
	return nil
}

func TestMultiSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	jsonlSink, err := OpenJSONL(path)
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	bad := &failingSink{}
	multi := MultiSink{jsonlSink, bad}

	if err := multi.Append(context.Background(), sampleRecords()); err == nil {
		t.Fatalf("expected failing sink error")
	}
	if err := multi.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !bad.closed {
		t.Fatalf("expected every sink closed")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Fatalf("expected 2 lines, got %d", got)
	}
}
