package core

// OrganismState is the mutable per-lineage record advanced by an evolution
// machine. The three metrics are always clamped to [0,1] after every update
// and Transcended flips false→true at most once, never back.
//
// An OrganismState is owned by exactly one machine; other components only
// ever observe snapshots carried on events or lineage results.
type OrganismState struct {
	Name          string  `json:"name"`
	Generation    int     `json:"generation"`
	Fitness       float64 `json:"fitness"`
	Consciousness float64 `json:"consciousness"`
	Stability     float64 `json:"stability"`
	Transcended   bool    `json:"transcended"`
}

// NewOrganismState constructs an organism at generation 1 with the given
// initial metrics (clamped to [0,1]).
func NewOrganismState(name string, fitness, consciousness, stability float64) OrganismState {
	o := OrganismState{
		Name:          name,
		Generation:    1,
		Fitness:       fitness,
		Consciousness: consciousness,
		Stability:     stability,
	}
	o.Clamp()
	return o
}

// Clamp forces all three metrics back into [0,1].
func (o *OrganismState) Clamp() {
	o.Fitness = clamp01(o.Fitness)
	o.Consciousness = clamp01(o.Consciousness)
	o.Stability = clamp01(o.Stability)
}

// Snapshot returns a value copy safe for publication on events.
func (o *OrganismState) Snapshot() OrganismState { return *o }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
