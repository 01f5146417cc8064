package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/logging"
)

// ResultStatus classifies the terminal state of an externalization attempt.
type ResultStatus string

const (
	// StatusOK means artifacts were committed and pushed.
	StatusOK ResultStatus = "ok"
	// StatusNoOp means staging produced zero diff; nothing was committed.
	// Distinguishable from failure on purpose.
	StatusNoOp ResultStatus = "noop"
	// StatusBlocked means externalization was refused before any mutation
	// (validation failure or missing production credential).
	StatusBlocked ResultStatus = "blocked"
	// StatusFailed means a git operation failed after mutation started.
	StatusFailed ResultStatus = "failed"
)

// Default retry tuning for SmartExternalize. Configurable, not derived.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// defaultGeneratedSuffixes are the artifact file types eligible for
// best-effort conflict auto-resolution.
var defaultGeneratedSuffixes = []string{".tf", ".yaml", ".yml", ".json"}

// Request describes one externalization.
type Request struct {
	// Target is the working copy directory. Treated as a singleton resource:
	// no two attempts against the same target run concurrently.
	Target string
	// Files are the named generated artifacts to stage.
	Files []string
	// Message is the commit message; autogenerated when empty.
	Message string
	// DryRun performs every pre-flight check but mutates nothing.
	DryRun bool
	// ValidateFirst runs the validation gate before any mutation.
	ValidateFirst bool
	// Force uses a safe force push (--force-with-lease) instead of a plain push.
	Force bool
}

// Result is the structured outcome of an externalization attempt.
type Result struct {
	Status        ResultStatus `json:"status"`
	Files         []string     `json:"files,omitempty"`
	CommitMessage string       `json:"commit_message,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
	Reason        string       `json:"reason,omitempty"`
	Err           error        `json:"-"`
}

// Success reports whether artifacts reached the remote.
func (r Result) Success() bool { return r.Status == StatusOK }

// Validator is the gate contract the pipeline consults before mutating
// external state. Satisfied by *gate.Gate.
type Validator interface {
	Validate(ctx context.Context, target string) core.ValidationResult
}

// ExecFunc runs a command in dir and returns its combined output.
type ExecFunc func(ctx context.Context, dir, name string, args ...string) (string, error)

func defaultExec(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Options holds configuration overrides passed to New().
type Options struct {
	// Environment supplies the simulation/production switch and credential.
	Environment core.Environment
	// Validator is consulted when Request.ValidateFirst is set.
	Validator Validator
	// GeneratedSuffixes limits conflict auto-resolution to these file types.
	GeneratedSuffixes []string
	// MaxAttempts bounds SmartExternalize retries.
	MaxAttempts int
	// RetryDelay is the fixed inter-attempt delay for SmartExternalize.
	RetryDelay time.Duration
	// Exec overrides command execution (tests).
	Exec ExecFunc
	// Logger receives attempt summaries.
	Logger logging.Logger
}

// Externalizer stages, commits and pushes generated artifacts. Safe for
// concurrent use; attempts against the same working copy are serialized.
type Externalizer struct {
	env               core.Environment
	validator         Validator
	generatedSuffixes []string
	maxAttempts       int
	retryDelay        time.Duration
	exec              ExecFunc
	logger            logging.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New constructs an Externalizer with optional overrides.
func New(optFns ...func(o *Options)) *Externalizer {
	opts := Options{
		Environment:       core.Environment{Mode: core.ModeSimulation},
		GeneratedSuffixes: defaultGeneratedSuffixes,
		MaxAttempts:       DefaultMaxAttempts,
		RetryDelay:        DefaultRetryDelay,
		Exec:              defaultExec,
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Externalizer{
		env:               opts.Environment,
		validator:         opts.Validator,
		generatedSuffixes: opts.GeneratedSuffixes,
		maxAttempts:       opts.MaxAttempts,
		retryDelay:        opts.RetryDelay,
		exec:              opts.Exec,
		logger:            opts.Logger,
	}
}

// credentialBlocked enforces the production-mode credential requirement. It
// applies regardless of any gate outcome.
func (e *Externalizer) credentialBlocked() (bool, Result) {
	if e.env.Mode == core.ModeProduction && !e.env.HasCredential() {
		reason := "externalization blocked: production mode requires a credential (EVOMESH_CREDENTIAL) and none is present"
		e.logger.Warn(reason)
		return true, Result{Status: StatusBlocked, Reason: reason, Timestamp: time.Now().UTC()}
	}
	return false, Result{}
}

// lockFor returns the mutex serializing attempts against one working copy.
func (e *Externalizer) lockFor(target string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	if e.locks == nil {
		e.locks = map[string]*sync.Mutex{}
	}
	if _, ok := e.locks[target]; !ok {
		e.locks[target] = &sync.Mutex{}
	}
	return e.locks[target]
}

// Externalize runs one gated stage/commit/push pass. Expected failures come
// back as a Result with a human-readable Reason; Err is set alongside
// StatusFailed for callers that want the underlying cause.
func (e *Externalizer) Externalize(ctx context.Context, req Request) Result {
	lock := e.lockFor(req.Target)
	lock.Lock()
	defer lock.Unlock()

	return e.externalizeLocked(ctx, req)
}

func (e *Externalizer) externalizeLocked(ctx context.Context, req Request) Result {
	start := time.Now()
	res := e.run(ctx, req)

	if rich, ok := e.logger.(*logging.EvoMeshLogger); ok {
		rich.LogExternalization(req.Target, string(res.Status), len(res.Files), time.Since(start), res.Err)
	}

	return res
}

func (e *Externalizer) run(ctx context.Context, req Request) Result {
	start := time.Now()

	if blocked, result := e.credentialBlocked(); blocked {
		return result
	}

	if req.ValidateFirst && e.validator != nil {
		vr := e.validator.Validate(ctx, req.Target)
		if !vr.Passed {
			reason := fmt.Sprintf("externalization blocked: validation gate failed: %s", strings.Join(vr.Errors, "; "))
			e.logger.Warn(reason)
			return Result{Status: StatusBlocked, Reason: reason, Timestamp: time.Now().UTC()}
		}
	}

	existing := e.existingFiles(req.Target, req.Files)
	if len(existing) == 0 {
		return Result{
			Status:    StatusFailed,
			Reason:    "nothing to externalize: none of the named files exist",
			Err:       fmt.Errorf("nothing to externalize"),
			Timestamp: time.Now().UTC(),
		}
	}

	message := req.Message
	if message == "" {
		message = fmt.Sprintf("chore: externalize %d generated artifact(s) at %s", len(existing), time.Now().UTC().Format(time.RFC3339))
	}

	if req.DryRun {
		return Result{Status: StatusOK, Files: existing, CommitMessage: message, Reason: "dry run", Timestamp: time.Now().UTC()}
	}

	if out, err := e.exec(ctx, req.Target, "git", append([]string{"add", "--"}, existing...)...); err != nil {
		return e.failed(req.Target, existing, start, fmt.Errorf("git add failed: %v: %s", err, firstLine(out)))
	}

	// Zero staged diff is a no-op, not an error.
	if _, err := e.exec(ctx, req.Target, "git", "diff", "--cached", "--quiet"); err == nil {
		return Result{Status: StatusNoOp, Files: existing, Reason: "no staged changes", Timestamp: time.Now().UTC()}
	}

	if out, err := e.exec(ctx, req.Target, "git", "commit", "-m", message); err != nil {
		return e.failed(req.Target, existing, start, fmt.Errorf("git commit failed: %v: %s", err, firstLine(out)))
	}

	pushArgs := []string{"push"}
	if req.Force {
		pushArgs = []string{"push", "--force-with-lease"}
	}
	if out, err := e.exec(ctx, req.Target, "git", pushArgs...); err != nil {
		return e.failed(req.Target, existing, start, fmt.Errorf("git push failed: %v: %s", err, firstLine(out)))
	}

	e.logger.Info("externalized %d file(s) from %s in %v", len(existing), req.Target, time.Since(start))

	return Result{Status: StatusOK, Files: existing, CommitMessage: message, Timestamp: time.Now().UTC()}
}

// SmartExternalize wraps Externalize with remote synchronization and
// best-effort conflict handling. Before each attempt the working copy is
// synchronized with its remote; conflicts confined to recognized
// generated-artifact files are auto-resolved preferring the local version.
// After exhausting attempts the last result is surfaced.
func (e *Externalizer) SmartExternalize(ctx context.Context, req Request) Result {
	lock := e.lockFor(req.Target)
	lock.Lock()
	defer lock.Unlock()

	if blocked, result := e.credentialBlocked(); blocked {
		return result
	}

	var last Result

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if out, err := e.exec(ctx, req.Target, "git", "pull", "--rebase", "--autostash"); err != nil {
			if resolved := e.resolveGeneratedConflicts(ctx, req.Target, out); !resolved {
				last = syncFailure(out, err)
				if attempt == e.maxAttempts {
					return last
				}
				e.wait(ctx)
				continue
			}
		}

		last = e.externalizeLocked(ctx, req)
		if last.Status != StatusFailed {
			return last
		}
		if !isConflict(last) || !e.resolveGeneratedConflicts(ctx, req.Target, errText(last)) {
			// Non-conflict failures and unrecognized conflicts are only
			// retried, never resolved.
			if attempt == e.maxAttempts {
				return last
			}
		}

		e.logger.Info("externalization attempt %d/%d failed for %s: %s", attempt, e.maxAttempts, req.Target, last.Reason)
		e.wait(ctx)
	}

	return last
}

// resolveGeneratedConflicts auto-resolves merge conflicts, but only when
// every conflicted path carries a recognized generated-artifact suffix. Any
// other conflict is left untouched and surfaced to the caller.
func (e *Externalizer) resolveGeneratedConflicts(ctx context.Context, target, failureText string) bool {
	if !hasConflictMarkers(failureText) {
		return false
	}

	out, err := e.exec(ctx, target, "git", "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return false
	}

	conflicted := strings.Fields(strings.TrimSpace(out))
	if len(conflicted) == 0 {
		return false
	}
	for _, f := range conflicted {
		if !e.isGenerated(f) {
			e.logger.Warn("conflict in non-generated file %s, refusing to auto-resolve", f)
			return false
		}
	}

	// Prefer the locally generated version for every conflicted artifact.
	for _, f := range conflicted {
		if _, err := e.exec(ctx, target, "git", "checkout", "--ours", "--", f); err != nil {
			return false
		}
		if _, err := e.exec(ctx, target, "git", "add", "--", f); err != nil {
			return false
		}
	}
	if _, err := e.exec(ctx, target, "git", "rebase", "--continue"); err != nil {
		// Plain merge conflicts have no rebase to continue; that is fine as
		// long as the index is conflict-free now.
		if out, err := e.exec(ctx, target, "git", "diff", "--name-only", "--diff-filter=U"); err != nil || strings.TrimSpace(out) != "" {
			return false
		}
	}

	e.logger.Info("auto-resolved %d generated-artifact conflict(s) in %s", len(conflicted), target)
	return true
}

func (e *Externalizer) isGenerated(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range e.generatedSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}

func (e *Externalizer) existingFiles(target string, files []string) []string {
	var existing []string
	for _, f := range files {
		if info, err := os.Stat(filepath.Join(target, f)); err == nil && !info.IsDir() && info.Size() > 0 {
			existing = append(existing, f)
		}
	}
	return existing
}

func (e *Externalizer) failed(target string, files []string, start time.Time, err error) Result {
	e.logger.Error("externalization failed for %s after %v: %v", target, time.Since(start), err)
	return Result{Status: StatusFailed, Files: files, Reason: err.Error(), Err: err, Timestamp: time.Now().UTC()}
}

func (e *Externalizer) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(e.retryDelay):
	}
}

// syncFailure classifies a failed remote synchronization: an unresolved merge
// conflict is reported as such, anything else (unreachable remote, rejected
// credentials, detached state) as a plain sync failure.
func syncFailure(out string, err error) Result {
	if hasConflictMarkers(out) {
		return Result{
			Status:    StatusFailed,
			Reason:    fmt.Sprintf("remote sync conflict outside generated artifacts: %s", firstLine(out)),
			Err:       fmt.Errorf("unresolvable sync conflict: %v", err),
			Timestamp: time.Now().UTC(),
		}
	}
	return Result{
		Status:    StatusFailed,
		Reason:    fmt.Sprintf("remote sync failed: %s", firstLine(out)),
		Err:       fmt.Errorf("remote sync failed: %v", err),
		Timestamp: time.Now().UTC(),
	}
}

func hasConflictMarkers(s string) bool {
	return strings.Contains(s, "CONFLICT") || strings.Contains(s, "conflict")
}

func isConflict(r Result) bool {
	return hasConflictMarkers(errText(r))
}

func errText(r Result) string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Reason
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
