// Package schema validates records crossing the pipeline boundary against the
// embedded JSON schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/miradorstack/atlas/internal/models"
)

// ErrInvalid is matched by every validation failure.
var ErrInvalid = errors.New("schema validation failed")

const (
	stageResultURL = "https://schemas.miradorstack.dev/atlas/stage_result.schema.json"
	observationURL = "https://schemas.miradorstack.dev/atlas/observation.schema.json"
)

//go:embed schemas/*.json
var files embed.FS

// Validator holds the compiled StageResult and Observation schemas.
// Compiled schemas are safe for concurrent use.
type Validator struct {
	stageResult *jsonschema.Schema
	observation *jsonschema.Schema
}

// New compiles the embedded schemas.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	for url, name := range map[string]string{
		stageResultURL: "schemas/stage_result.schema.json",
		observationURL: "schemas/observation.schema.json",
	} {
		raw, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
	}

	stage, err := compiler.Compile(stageResultURL)
	if err != nil {
		return nil, fmt.Errorf("compile stage result schema: %w", err)
	}
	obs, err := compiler.Compile(observationURL)
	if err != nil {
		return nil, fmt.Errorf("compile observation schema: %w", err)
	}
	return &Validator{stageResult: stage, observation: obs}, nil
}

// MustNew is New for static initialisation; the embedded schemas always compile.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// StageResult validates an encoded record.
func (v *Validator) StageResult(r models.StageResult) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%w: encode %s record: %w", ErrInvalid, r.Stage, err)
	}
	return validate(v.stageResult, raw)
}

// Observation validates one raw input line.
func (v *Validator) Observation(raw []byte) error {
	return validate(v.observation, raw)
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
