package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/miradorstack/atlas/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS stage_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	ts TEXT NOT NULL,
	anchor_id TEXT NOT NULL,
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	metric TEXT NOT NULL,
	value REAL,
	threshold REAL,
	aux_json TEXT NOT NULL,
	notes TEXT NOT NULL,
	seed INTEGER NOT NULL,
	commit_sha TEXT NOT NULL,
	thresholds_sha256 TEXT NOT NULL,
	schema_version TEXT NOT NULL,
	cost REAL
);
CREATE INDEX IF NOT EXISTS idx_stage_results_anchor ON stage_results(anchor_id, stage);
CREATE TRIGGER IF NOT EXISTS stage_results_no_update BEFORE UPDATE ON stage_results
BEGIN SELECT RAISE(ABORT, 'stage_results is append-only'); END;
CREATE TRIGGER IF NOT EXISTS stage_results_no_delete BEFORE DELETE ON stage_results
BEGIN SELECT RAISE(ABORT, 'stage_results is append-only'); END;
`

// SQLiteSink inserts records into an append-only stage_results table.
type SQLiteSink struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens (or creates) the audit database at path.
func OpenSQLite(ctx context.Context, path, runID string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLiteSink{db: db, runID: runID}, nil
}

// Append inserts records in one transaction.
func (s *SQLiteSink) Append(ctx context.Context, records []models.StageResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stage_results (run_id, ts, anchor_id, stage, status, metric, value, threshold, aux_json, notes, seed, commit_sha, thresholds_sha256, schema_version, cost)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		aux, err := json.Marshal(r.Aux)
		if err != nil {
			return fmt.Errorf("encode aux for %s/%s: %w", r.AnchorID, r.Stage, err)
		}
		if _, err := stmt.ExecContext(ctx,
			s.runID, r.Timestamp, r.AnchorID, r.Stage, string(r.Status), r.Metric,
			nullableFloat(r.Value), nullableFloat(r.Threshold), string(aux), r.Notes,
			r.Seed, r.Commit, r.ThresholdsSHA256, r.SchemaVersion, nullableFloat(r.Cost),
		); err != nil {
			return fmt.Errorf("insert %s/%s: %w", r.AnchorID, r.Stage, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// Records returns the stored records of one stage (all stages when empty) in insertion order.
func (s *SQLiteSink) Records(ctx context.Context, stage string) ([]models.StageResult, error) {
	query := `SELECT ts, anchor_id, stage, status, metric, value, threshold, aux_json, notes, seed, commit_sha, thresholds_sha256, schema_version, cost
		FROM stage_results`
	var args []any
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stage results: %w", err)
	}
	defer rows.Close()

	var out []models.StageResult
	for rows.Next() {
		var (
			r                      models.StageResult
			status, aux            string
			value, threshold, cost sql.NullFloat64
		)
		if err := rows.Scan(&r.Timestamp, &r.AnchorID, &r.Stage, &status, &r.Metric, &value, &threshold,
			&aux, &r.Notes, &r.Seed, &r.Commit, &r.ThresholdsSHA256, &r.SchemaVersion, &cost); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		r.Status = models.Status(status)
		r.Value = floatPtr(value)
		r.Threshold = floatPtr(threshold)
		r.Cost = floatPtr(cost)
		if err := json.Unmarshal([]byte(aux), &r.Aux); err != nil {
			return nil, fmt.Errorf("decode aux: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DB exposes the underlying handle.
func (s *SQLiteSink) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
