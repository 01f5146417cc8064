package core

import "time"

// LineageOutcome classifies how a lineage settled.
type LineageOutcome string

const (
	// OutcomeTranscended means the lineage reached externalization-confirmed
	// transcendence.
	OutcomeTranscended LineageOutcome = "transcended"
	// OutcomeExhausted means the generation budget ran out without
	// transcending. This is a well-formed terminal result, not an error.
	OutcomeExhausted LineageOutcome = "exhausted"
	// OutcomeFailed means the machine returned an error.
	OutcomeFailed LineageOutcome = "failed"
	// OutcomeTimeout means the lineage exceeded its per-lineage deadline and
	// was abandoned.
	OutcomeTimeout LineageOutcome = "timeout"
)

// LineageResult is the terminal record collected for every lineage after it
// settles (completes, transcends, errors or times out).
//
// Invariant: Err is non-nil iff Success is false.
type LineageResult struct {
	Organism   string         `json:"organism"`
	Success    bool           `json:"success"`
	Outcome    LineageOutcome `json:"outcome"`
	FinalState OrganismState  `json:"final_state"`
	Duration   time.Duration  `json:"duration"`
	Err        error          `json:"-"`
}
