// Package jsonl reads and appends newline-delimited JSON.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// MaxLineBytes bounds a single input line.
const MaxLineBytes = 16 << 20

// Line is one non-blank input line with its 1-based position.
type Line struct {
	Number int
	Data   []byte
}

// Reader iterates the non-blank lines of a stream.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r in a buffered line scanner.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	return &Reader{scanner: scanner}
}

// Next returns the next non-blank line, or io.EOF when the stream is exhausted.
func (r *Reader) Next() (Line, error) {
	for r.scanner.Scan() {
		r.line++
		data := bytes.TrimSpace(r.scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		return Line{Number: r.line, Data: bytes.Clone(data)}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Line{}, fmt.Errorf("read line %d: %w", r.line+1, err)
	}
	return Line{}, io.EOF
}

// Writer appends one JSON value per line. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// NewWriter buffers writes to w.
func NewWriter(w io.Writer) *Writer {
	jw := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		jw.closer = c
	}
	return jw
}

// OpenAppend opens path for appending, creating it and its directory when needed.
// Existing lines are never rewritten.
func OpenAppend(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewWriter(f), nil
}

// Write encodes v and appends it followed by a newline.
func (w *Writer) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode line: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Flush()
}

// Close flushes and closes the underlying writer when it is closable.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// ReadAll decodes every line of r into T, stopping at the first malformed line.
func ReadAll[T any](r io.Reader) ([]T, error) {
	reader := NewReader(r)
	var out []T
	for {
		line, err := reader.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(line.Data, &v); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line.Number, err)
		}
		out = append(out, v)
	}
}
