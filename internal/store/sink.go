// Package store persists StageResults. Every sink is append-only.
package store

import (
	"context"
	"errors"

	"github.com/miradorstack/atlas/internal/jsonl"
	"github.com/miradorstack/atlas/internal/models"
)

// Sink receives the ordered records of one Observation at a time.
type Sink interface {
	Append(ctx context.Context, records []models.StageResult) error
	Close() error
}

// JSONLSink appends records as newline-delimited JSON.
type JSONLSink struct {
	w *jsonl.Writer
}

// NewJSONLSink wraps an open line writer.
func NewJSONLSink(w *jsonl.Writer) *JSONLSink {
	return &JSONLSink{w: w}
}

// OpenJSONL opens path in append mode.
func OpenJSONL(path string) (*JSONLSink, error) {
	w, err := jsonl.OpenAppend(path)
	if err != nil {
		return nil, err
	}
	return NewJSONLSink(w), nil
}

// Append writes records in order and flushes them.
func (s *JSONLSink) Append(ctx context.Context, records []models.StageResult) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.w.Write(r); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

// Close flushes and closes the writer.
func (s *JSONLSink) Close() error {
	return s.w.Close()
}

// MultiSink fans records out to every sink in order.
type MultiSink []Sink

// Append stops at the first failing sink.
func (m MultiSink) Append(ctx context.Context, records []models.StageResult) error {
	for _, s := range m {
		if err := s.Append(ctx, records); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
