package roctool

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	labelHeaders = map[string]bool{"label": true, "y": true, "target": true}
	scoreHeaders = map[string]bool{"score": true, "pred": true, "p": true}
)

// Label is one identifier with its binary class.
type Label struct {
	ID       string
	Positive bool
}

// rowOutcome is what a row callback did with a row.
type rowOutcome int

const (
	rowKept rowOutcome = iota
	rowHeader
	rowSkipped
)

// ReadLabels parses id,label rows. Rows with fewer than two columns, header
// rows and non-integer labels are skipped; the count of skipped data rows is
// returned. A label is positive iff it equals 1.
func ReadLabels(r io.Reader) ([]Label, int, error) {
	var out []Label
	skipped, err := eachRow(r, func(id, field string) rowOutcome {
		if labelHeaders[strings.ToLower(field)] {
			return rowHeader
		}
		y, err := strconv.Atoi(field)
		if err != nil {
			return rowSkipped
		}
		out = append(out, Label{ID: id, Positive: y == 1})
		return rowKept
	})
	if err != nil {
		return nil, skipped, fmt.Errorf("read labels: %w", err)
	}
	return out, skipped, nil
}

// ReadScores parses id,score rows into a map. Header rows, non-numeric and
// non-finite scores are skipped; the count of skipped data rows is returned.
// The last score for an identifier wins.
func ReadScores(r io.Reader) (map[string]float64, int, error) {
	out := make(map[string]float64)
	skipped, err := eachRow(r, func(id, field string) rowOutcome {
		if scoreHeaders[strings.ToLower(field)] {
			return rowHeader
		}
		s, err := strconv.ParseFloat(field, 64)
		if err != nil || math.IsNaN(s) || math.IsInf(s, 0) {
			return rowSkipped
		}
		out[id] = s
		return rowKept
	})
	if err != nil {
		return nil, skipped, fmt.Errorf("read scores: %w", err)
	}
	return out, skipped, nil
}

func eachRow(r io.Reader, fn func(id, field string) rowOutcome) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	skipped := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return skipped, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return skipped, err
		}
		if len(row) < 2 {
			skipped++
			continue
		}
		if fn(strings.TrimSpace(row[0]), strings.TrimSpace(row[1])) == rowSkipped {
			skipped++
		}
	}
}
