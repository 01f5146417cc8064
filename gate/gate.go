package gate

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/logging"
)

// Sub-check names used as keys in ValidationResult.Details.
const (
	CheckTarget      = "target"
	CheckRepository  = "repository"
	CheckRemote      = "remote"
	CheckPushProbe   = "push_probe"
	CheckCleanTree   = "clean_tree"
	CheckLocks       = "locks"
	CheckArtifacts   = "artifacts"
	DefaultBaseDelay = 500 * time.Millisecond
)

// ExecFunc runs a command in dir and returns its combined output. Injected in
// tests to avoid a real git dependency.
type ExecFunc func(ctx context.Context, dir, name string, args ...string) (string, error)

func defaultExec(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Options holds configuration overrides passed to New().
type Options struct {
	// BaseDelay is the first retry delay; it doubles per attempt.
	BaseDelay time.Duration
	// ExpectedArtifacts are generated files whose absence is advisory.
	ExpectedArtifacts []string
	// Exec overrides command execution (tests).
	Exec ExecFunc
	// Logger receives per-invocation summaries.
	Logger logging.Logger
}

// Gate is the validation gate. Safe for concurrent use; every Validate call
// produces a fresh result.
type Gate struct {
	baseDelay         time.Duration
	expectedArtifacts []string
	exec              ExecFunc
	logger            logging.Logger
}

// New constructs a Gate with optional overrides.
func New(optFns ...func(o *Options)) *Gate {
	opts := Options{
		BaseDelay: DefaultBaseDelay,
		Exec:      defaultExec,
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Gate{
		baseDelay:         opts.BaseDelay,
		expectedArtifacts: opts.ExpectedArtifacts,
		exec:              opts.Exec,
		logger:            opts.Logger,
	}
}

// Validate probes the target working copy. Checks 1-2 (directory access,
// valid repository) are fatal; the remaining checks are advisory warnings.
// Passed is true iff no fatal error was recorded.
func (g *Gate) Validate(ctx context.Context, target string) core.ValidationResult {
	start := time.Now()
	result := core.NewValidationResult()

	g.checkTarget(result, target)
	if result.Passed {
		g.checkRepository(ctx, result, target)
	}
	if result.Passed {
		g.checkRemote(ctx, result, target)
		g.checkPushProbe(ctx, result, target)
		g.checkCleanTree(ctx, result, target)
		g.checkLocks(result, target)
		g.checkArtifacts(result, target)
	}

	if rich, ok := g.logger.(*logging.EvoMeshLogger); ok {
		rich.LogGateCheck(target, time.Since(start), result.Passed, len(result.Errors), len(result.Warnings))
	} else {
		g.logger.Debug("gate validated %s passed=%v errors=%d warnings=%d in %v",
			target, result.Passed, len(result.Errors), len(result.Warnings), time.Since(start))
	}

	return *result
}

// ValidateWithRetry re-invokes Validate with exponential backoff (base delay
// doubling per attempt) until it passes or maxAttempts is exhausted. The last
// result is returned either way. Context cancellation aborts the wait and
// returns the most recent result.
func (g *Gate) ValidateWithRetry(ctx context.Context, target string, maxAttempts int) core.ValidationResult {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	delay := g.baseDelay
	var result core.ValidationResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result = g.Validate(ctx, target)
		if result.Passed || attempt == maxAttempts {
			return result
		}

		g.logger.Info("gate attempt %d/%d failed for %s, retrying in %v", attempt, maxAttempts, target, delay)

		select {
		case <-ctx.Done():
			return result
		case <-time.After(delay):
		}
		delay *= 2
	}

	return result
}

func (g *Gate) checkTarget(result *core.ValidationResult, target string) {
	info, err := os.Stat(target)
	if err != nil {
		result.AddError(CheckTarget, fmt.Sprintf("target %s does not exist: %v", target, err))
		return
	}
	if !info.IsDir() {
		result.AddError(CheckTarget, fmt.Sprintf("target %s is not a directory", target))
		return
	}
	if _, err := os.ReadDir(target); err != nil {
		result.AddError(CheckTarget, fmt.Sprintf("target %s is not readable: %v", target, err))
		return
	}
	probe, err := os.CreateTemp(target, ".evomesh-probe-*")
	if err != nil {
		result.AddError(CheckTarget, fmt.Sprintf("target %s is not writable: %v", target, err))
		return
	}
	probe.Close()
	os.Remove(probe.Name())

	result.AddPass(CheckTarget, "target is an accessible directory")
}

func (g *Gate) checkRepository(ctx context.Context, result *core.ValidationResult, target string) {
	if _, err := os.Stat(filepath.Join(target, ".git")); err != nil {
		result.AddError(CheckRepository, "target is not a version-controlled working copy (missing .git)")
		return
	}
	if out, err := g.exec(ctx, target, "git", "status", "--porcelain"); err != nil {
		result.AddError(CheckRepository, fmt.Sprintf("git status failed: %v: %s", err, strings.TrimSpace(out)))
		return
	}
	result.AddPass(CheckRepository, "valid git working copy")
}

func (g *Gate) checkRemote(ctx context.Context, result *core.ValidationResult, target string) {
	out, err := g.exec(ctx, target, "git", "remote")
	if err != nil || strings.TrimSpace(out) == "" {
		result.AddWarning(CheckRemote, "no remote configured")
		return
	}
	result.AddPass(CheckRemote, fmt.Sprintf("remotes: %s", strings.Join(strings.Fields(out), ",")))
}

func (g *Gate) checkPushProbe(ctx context.Context, result *core.ValidationResult, target string) {
	// Non-destructive probe. Many valid states fail this for reasons
	// unrelated to safety (no network, no upstream), so it never blocks.
	if out, err := g.exec(ctx, target, "git", "push", "--dry-run"); err != nil {
		result.AddWarning(CheckPushProbe, fmt.Sprintf("push probe failed: %s", firstLine(out)))
		return
	}
	result.AddPass(CheckPushProbe, "push probe succeeded")
}

func (g *Gate) checkCleanTree(ctx context.Context, result *core.ValidationResult, target string) {
	out, err := g.exec(ctx, target, "git", "status", "--porcelain")
	if err != nil {
		result.AddWarning(CheckCleanTree, fmt.Sprintf("could not determine tree state: %v", err))
		return
	}
	if strings.TrimSpace(out) != "" {
		result.AddWarning(CheckCleanTree, "working tree has uncommitted changes")
		return
	}
	result.AddPass(CheckCleanTree, "working tree clean")
}

func (g *Gate) checkLocks(result *core.ValidationResult, target string) {
	lock := filepath.Join(target, ".git", "index.lock")
	if _, err := os.Stat(lock); err == nil {
		result.AddWarning(CheckLocks, "stale lock artifact present: .git/index.lock")
		return
	}
	result.AddPass(CheckLocks, "no stale locks")
}

func (g *Gate) checkArtifacts(result *core.ValidationResult, target string) {
	if len(g.expectedArtifacts) == 0 {
		result.AddPass(CheckArtifacts, "no expected artifacts configured")
		return
	}
	var missing []string
	for _, name := range g.expectedArtifacts {
		if _, err := os.Stat(filepath.Join(target, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		result.AddWarning(CheckArtifacts, fmt.Sprintf("expected generated artifacts missing: %s", strings.Join(missing, ", ")))
		return
	}
	result.AddPass(CheckArtifacts, "all expected artifacts present")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
