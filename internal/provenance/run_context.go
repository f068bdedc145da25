package provenance

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion identifies the StageResult record contract.
const SchemaVersion = "atlas.stage_result@1"

// UnknownCommit is recorded when the source revision cannot be resolved.
const UnknownCommit = "unknown"

// RunContext holds the provenance shared by every record of one pipeline invocation.
// It is built once and passed by value; nothing mutates it mid-run.
type RunContext struct {
	RunID            string
	Seed             int64
	Commit           string
	ThresholdsSHA256 string
	SchemaVersion    string
}

// NewRunContext constructs a RunContext with a fresh run identifier.
func NewRunContext(seed int64, commit, thresholdsSHA256 string) RunContext {
	if commit == "" {
		commit = UnknownCommit
	}
	return RunContext{
		RunID:            uuid.NewString(),
		Seed:             seed,
		Commit:           commit,
		ThresholdsSHA256: thresholdsSHA256,
		SchemaVersion:    SchemaVersion,
	}
}

// GitCommit resolves HEAD for the repository containing dir, or UnknownCommit.
func GitCommit(ctx context.Context, dir string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return UnknownCommit
	}
	commit := strings.TrimSpace(string(out))
	if commit == "" {
		return UnknownCommit
	}
	return commit
}
