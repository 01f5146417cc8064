package evolution

import (
	"testing"

	"github.com/hupe1980/evomesh/core"
)

func TestScorer_DeterministicUnderSeed(t *testing.T) {
	cfg := core.EvolutionConfig{Seed: 7}
	cfg.Normalize()

	a := NewScorer(cfg)
	b := NewScorer(cfg)

	for i := 0; i < 10; i++ {
		if a.Delta(0.04) != b.Delta(0.04) {
			t.Fatalf("delta diverged at draw %d", i)
		}
		if a.Drift(0.01) != b.Drift(0.01) {
			t.Fatalf("drift diverged at draw %d", i)
		}
	}
}

func TestScorer_DeltaBoundsAndRateScale(t *testing.T) {
	cfg := core.EvolutionConfig{Seed: 1, Jitter: 0.02, Rate: core.RateAggressive}
	cfg.Normalize()
	s := NewScorer(cfg)

	for i := 0; i < 100; i++ {
		d := s.Delta(0.04)
		if d < 0.04*1.5 || d > (0.04+0.02)*1.5 {
			t.Fatalf("delta %v outside aggressive bounds", d)
		}
	}
}

func TestScorer_DriftBounds(t *testing.T) {
	cfg := core.EvolutionConfig{Seed: 1}
	cfg.Normalize()
	s := NewScorer(cfg)

	for i := 0; i < 100; i++ {
		d := s.Drift(0.01)
		if d < -0.01 || d > 0.01 {
			t.Fatalf("drift %v outside bounds", d)
		}
	}
}

func TestDefaultRules_WatermarksGateApplication(t *testing.T) {
	cfg := core.EvolutionConfig{}
	cfg.Normalize()
	rules := DefaultRules()

	saturated := core.NewOrganismState("alpha", 1, 1, 1)
	for _, r := range rules {
		if r.Applies(saturated, cfg) {
			t.Fatalf("rule %s must not fire above its watermark", r.Name)
		}
	}

	hungry := core.NewOrganismState("alpha", 0, 0, 0)
	for _, r := range rules {
		if !r.Applies(hungry, cfg) {
			t.Fatalf("rule %s must fire below its watermark", r.Name)
		}
	}
}
