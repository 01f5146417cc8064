package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Well-known pipeline definition files discovered by Status.
var pipelineDefinitionGlobs = []string{
	"cloudbuild.yaml",
	"cloudbuild.json",
	".gitlab-ci.yml",
	"Jenkinsfile",
	".github/workflows/*.yml",
	".github/workflows/*.yaml",
}

// Terminal run statuses recognized by Monitor.
var terminalStatuses = map[string]bool{
	"SUCCESS":   true,
	"FAILURE":   true,
	"CANCELLED": true,
	"TIMEOUT":   true,
	"ERROR":     true,
}

// PipelineStatus reports the current branch, HEAD commit and the pipeline
// definitions available in the working copy.
type PipelineStatus struct {
	Branch      string   `json:"branch"`
	Commit      string   `json:"commit"`
	Definitions []string `json:"definitions,omitempty"`
}

// MonitorOutcome is the result of polling a triggered run. A run that never
// reaches a terminal status within the timeout yields Completed=false rather
// than an error.
type MonitorOutcome struct {
	Completed bool          `json:"completed"`
	Status    string        `json:"status,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// TriggerCommand configures how TriggerPipeline invokes the external build
// system. The pipeline definition name is appended as the final argument.
type TriggerCommand []string

// StatusCommand configures how Monitor polls a run; the run identifier is
// appended as the final argument and the output is expected to be JSON with
// a top-level "status" field (extra fields ignored).
type StatusCommand []string

// CheckPipelineStatus inspects the working copy without mutating it.
func (e *Externalizer) CheckPipelineStatus(ctx context.Context, target string) (PipelineStatus, error) {
	branch, err := e.exec(ctx, target, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return PipelineStatus{}, fmt.Errorf("failed to resolve branch: %w", err)
	}
	commit, err := e.exec(ctx, target, "git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return PipelineStatus{}, fmt.Errorf("failed to resolve commit: %w", err)
	}

	var defs []string
	for _, pattern := range pipelineDefinitionGlobs {
		matches, _ := filepath.Glob(filepath.Join(target, pattern))
		for _, m := range matches {
			if rel, err := filepath.Rel(target, m); err == nil {
				defs = append(defs, rel)
			}
		}
	}

	return PipelineStatus{
		Branch:      strings.TrimSpace(branch),
		Commit:      strings.TrimSpace(commit),
		Definitions: defs,
	}, nil
}

// TriggerPipeline invokes the named pipeline definition through the
// configured trigger command and returns the run identifier reported on the
// command's first output line.
func (e *Externalizer) TriggerPipeline(ctx context.Context, target, definition string, cmd TriggerCommand) (string, error) {
	if len(cmd) == 0 {
		return "", fmt.Errorf("no trigger command configured")
	}
	if _, err := os.Stat(filepath.Join(target, definition)); err != nil {
		return "", fmt.Errorf("pipeline definition %s not found: %w", definition, err)
	}

	args := append(append([]string(nil), cmd[1:]...), definition)
	out, err := e.exec(ctx, target, cmd[0], args...)
	if err != nil {
		return "", fmt.Errorf("pipeline trigger failed: %v: %s", err, firstLine(out))
	}
	return firstLine(out), nil
}

// MonitorPipeline polls the run on a fixed interval until it reports a
// terminal status or the timeout elapses. It never blocks indefinitely: a
// run still in flight at the deadline comes back as not completed.
func (e *Externalizer) MonitorPipeline(ctx context.Context, target, runID string, cmd StatusCommand, interval, timeout time.Duration) MonitorOutcome {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	start := time.Now()
	deadline := start.Add(timeout)

	var lastStatus string
	for {
		if len(cmd) > 0 {
			args := append(append([]string(nil), cmd[1:]...), runID)
			if out, err := e.exec(ctx, target, cmd[0], args...); err == nil {
				// Tolerant parse: unknown fields in the status document are
				// ignored.
				if s := gjson.Get(out, "status"); s.Exists() {
					lastStatus = s.String()
				}
			}
		}

		if terminalStatuses[strings.ToUpper(lastStatus)] {
			return MonitorOutcome{Completed: true, Status: lastStatus, Elapsed: time.Since(start)}
		}
		if !time.Now().Before(deadline) {
			return MonitorOutcome{Completed: false, Status: lastStatus, Elapsed: time.Since(start)}
		}

		select {
		case <-ctx.Done():
			return MonitorOutcome{Completed: false, Status: lastStatus, Elapsed: time.Since(start)}
		case <-time.After(interval):
		}
	}
}
