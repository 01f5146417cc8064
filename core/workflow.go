package core

import "sync"

// WorkflowState tracks the orchestrator's boolean milestones plus the safe
// mode flag. It is mutated only by the collaboration orchestrator in response
// to events and may be reset on demand. Safe for concurrent access.
type WorkflowState struct {
	mu         sync.RWMutex
	milestones map[string]bool
	safeMode   bool
}

// Milestone names tracked by the built-in workflow.
const (
	MilestoneExpansionReadiness        = "expansionReadiness"
	MilestoneGeneDeficitAnalysis       = "geneDeficitAnalysis"
	MilestoneBountyDesigned            = "bountyDesigned"
	MilestoneBountyPublished           = "bountyPublished"
	MilestoneInfrastructureProvisioned = "infrastructureProvisioned"
	MilestoneTranscendenceComplete     = "transcendenceComplete"
)

// NewWorkflowState returns an empty workflow state.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{milestones: map[string]bool{}}
}

// Mark sets a milestone to reached.
func (w *WorkflowState) Mark(milestone string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.milestones[milestone] = true
}

// Reached reports whether a milestone has been marked.
func (w *WorkflowState) Reached(milestone string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.milestones[milestone]
}

// SetSafeMode toggles the degraded safe mode flag.
func (w *WorkflowState) SetSafeMode(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.safeMode = on
}

// SafeMode reports whether the orchestrator is in degraded safe mode.
func (w *WorkflowState) SafeMode() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.safeMode
}

// Reset clears all milestones and leaves safe mode.
func (w *WorkflowState) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.milestones = map[string]bool{}
	w.safeMode = false
}

// Snapshot returns a copy of the milestone map plus the safe mode flag for
// safe external inspection.
func (w *WorkflowState) Snapshot() (map[string]bool, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cp := make(map[string]bool, len(w.milestones))
	for k, v := range w.milestones {
		cp[k] = v
	}
	return cp, w.safeMode
}
