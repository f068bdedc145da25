package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/miradorstack/atlas/internal/jsonl"
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/store"
	"github.com/miradorstack/atlas/internal/utils"
)

// loadRecords reads a StageResult stream from an NDJSON file or, when
// sqlitePath is set, from the audit database.
func loadRecords(ctx context.Context, input, sqlitePath string) ([]models.StageResult, error) {
	if sqlitePath != "" {
		if _, err := os.Stat(sqlitePath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, utils.MissingInput("load records", sqlitePath, err)
			}
			return nil, fmt.Errorf("load records: %w", err)
		}
		db, err := store.OpenSQLite(ctx, sqlitePath, "")
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return db.Records(ctx, "")
	}

	f, err := openInput("load records", input)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := jsonl.ReadAll[models.StageResult](f)
	if err != nil {
		return nil, utils.NewAppError("load records", input, err)
	}
	return records, nil
}

// writeJSON writes v as indented JSON to path, or to w when path is empty.
func writeJSON(w io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
