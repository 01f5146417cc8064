package evolution

import (
	"math/rand"

	"github.com/hupe1980/evomesh/core"
)

// Scorer is the pluggable metric scoring function. It produces the bounded
// random components of mutation increments and drift. Implementations must be
// deterministic under a fixed seed so lineage runs are reproducible.
type Scorer interface {
	// Delta returns base plus a bounded non-negative jitter, scaled by the
	// configured evolution rate.
	Delta(base float64) float64
	// Drift returns a value uniformly distributed in [-bound, bound].
	Drift(bound float64) float64
}

// jitterScorer is the default Scorer: fixed base plus uniform jitter drawn
// from a seeded source.
type jitterScorer struct {
	rng    *rand.Rand
	jitter float64
	scale  float64
}

// NewScorer builds the default seeded Scorer for a lineage configuration.
func NewScorer(cfg core.EvolutionConfig) Scorer {
	return &jitterScorer{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		jitter: cfg.Jitter,
		scale:  cfg.RateScale(),
	}
}

func (s *jitterScorer) Delta(base float64) float64 {
	return (base + s.rng.Float64()*s.jitter) * s.scale
}

func (s *jitterScorer) Drift(bound float64) float64 {
	return (s.rng.Float64()*2 - 1) * bound
}

// Rule is one deterministic mutation rule evaluated against the current
// metrics every cycle. Multiple rules may fire in the same cycle.
type Rule struct {
	Name    string
	Applies func(state core.OrganismState, cfg core.EvolutionConfig) bool
	Apply   func(state *core.OrganismState, cfg core.EvolutionConfig, scorer Scorer)
}

// DefaultRules returns the built-in mutation rule set: an introspection-style
// consciousness increment below the high watermark with a smaller secondary
// fitness bump, and a learning-rate-style fitness increment below the fitness
// watermark with a smaller stability bump.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "introspection",
			Applies: func(s core.OrganismState, cfg core.EvolutionConfig) bool {
				return s.Consciousness < cfg.HighWatermark
			},
			Apply: func(s *core.OrganismState, cfg core.EvolutionConfig, scorer Scorer) {
				s.Consciousness += scorer.Delta(cfg.ConsciousnessBase)
				s.Fitness += scorer.Delta(cfg.ConsciousnessBase / 2)
			},
		},
		{
			Name: "learning",
			Applies: func(s core.OrganismState, cfg core.EvolutionConfig) bool {
				return s.Fitness < cfg.FitnessWatermark
			},
			Apply: func(s *core.OrganismState, cfg core.EvolutionConfig, scorer Scorer) {
				s.Fitness += scorer.Delta(cfg.FitnessBase)
				s.Stability += scorer.Delta(cfg.FitnessBase / 2)
			},
		},
	}
}
