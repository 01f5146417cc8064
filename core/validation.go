package core

// CheckStatus classifies a single gate sub-check outcome.
type CheckStatus string

const (
	// CheckPass means the sub-check succeeded.
	CheckPass CheckStatus = "pass"
	// CheckWarn means the sub-check found an advisory condition that does not
	// block externalization.
	CheckWarn CheckStatus = "warn"
	// CheckFail means the sub-check found a fatal structural problem.
	CheckFail CheckStatus = "fail"
)

// CheckOutcome is the result of one named gate sub-check.
type CheckOutcome struct {
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

// ValidationResult aggregates the gate sub-checks for one invocation. It is
// produced fresh every time and only ever logged, never persisted as
// authoritative state.
//
// Invariant: Passed is true iff Errors is empty. Warnings never affect Passed.
type ValidationResult struct {
	Passed   bool                    `json:"passed"`
	Errors   []string                `json:"errors,omitempty"`
	Warnings []string                `json:"warnings,omitempty"`
	Details  map[string]CheckOutcome `json:"details,omitempty"`
}

// NewValidationResult returns an empty, passing result ready to accumulate
// sub-check outcomes.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Passed: true, Details: map[string]CheckOutcome{}}
}

// AddPass records a passing sub-check.
func (r *ValidationResult) AddPass(check, detail string) {
	r.Details[check] = CheckOutcome{Status: CheckPass, Detail: detail}
}

// AddWarning records an advisory finding. The result still passes.
func (r *ValidationResult) AddWarning(check, detail string) {
	r.Details[check] = CheckOutcome{Status: CheckWarn, Detail: detail}
	r.Warnings = append(r.Warnings, detail)
}

// AddError records a fatal finding and forces Passed to false.
func (r *ValidationResult) AddError(check, detail string) {
	r.Details[check] = CheckOutcome{Status: CheckFail, Detail: detail}
	r.Errors = append(r.Errors, detail)
	r.Passed = false
}
