package core

import (
	"testing"
)

func TestOrganismState_ClampAndConstruction(t *testing.T) {
	o := NewOrganismState("alpha", 1.7, -0.3, 0.5)
	if o.Generation != 1 {
		t.Fatalf("expected generation 1, got %d", o.Generation)
	}
	if o.Fitness != 1 || o.Consciousness != 0 || o.Stability != 0.5 {
		t.Fatalf("constructor did not clamp metrics: %+v", o)
	}

	o.Fitness = 2.5
	o.Consciousness = -1
	o.Stability = 0.9
	o.Clamp()
	if o.Fitness != 1 || o.Consciousness != 0 || o.Stability != 0.9 {
		t.Fatalf("clamp failed: %+v", o)
	}
}

func TestOrganismState_SnapshotIsolation(t *testing.T) {
	o := NewOrganismState("alpha", 0.5, 0.5, 0.5)
	snap := o.Snapshot()
	o.Fitness = 0.9
	o.Transcended = true
	if snap.Fitness != 0.5 || snap.Transcended {
		t.Fatalf("snapshot reflects later mutation: %+v", snap)
	}
}

func TestValidationResult_ErrorForcesFailed(t *testing.T) {
	r := NewValidationResult()
	if !r.Passed {
		t.Fatal("fresh result should pass")
	}

	r.AddPass("target", "ok")
	r.AddWarning("remote", "no remote configured")
	if !r.Passed {
		t.Fatal("warnings must not affect Passed")
	}
	if len(r.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(r.Warnings))
	}

	r.AddError("repository", "missing .git")
	if r.Passed {
		t.Fatal("errors must force Passed to false")
	}
	if r.Details["repository"].Status != CheckFail {
		t.Fatalf("expected fail outcome, got %+v", r.Details["repository"])
	}
}

func TestWorkflowState_MarkResetSnapshot(t *testing.T) {
	w := NewWorkflowState()
	w.Mark(MilestoneBountyDesigned)
	w.SetSafeMode(true)

	if !w.Reached(MilestoneBountyDesigned) {
		t.Fatal("milestone not reached after Mark")
	}
	if w.Reached(MilestoneBountyPublished) {
		t.Fatal("unmarked milestone reported reached")
	}

	snap, safe := w.Snapshot()
	if !snap[MilestoneBountyDesigned] || !safe {
		t.Fatalf("snapshot mismatch: %v safe=%v", snap, safe)
	}

	// snapshot is a copy
	snap[MilestoneBountyPublished] = true
	if w.Reached(MilestoneBountyPublished) {
		t.Fatal("snapshot mutation leaked into state")
	}

	w.Reset()
	snap, safe = w.Snapshot()
	if len(snap) != 0 || safe {
		t.Fatalf("reset did not clear state: %v safe=%v", snap, safe)
	}
}

func TestParseDNA_DefaultsAndUnknownKeys(t *testing.T) {
	blob := []byte("name: alpha\nevolution_rate: aggressive\nunknown_key: ignored\nplumage: iridescent\n")
	cfg, err := ParseDNA(blob)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Name != "alpha" || cfg.Rate != RateAggressive {
		t.Fatalf("parsed fields wrong: %+v", cfg)
	}
	if cfg.ConsciousnessTarget != DefaultConsciousnessTarget || cfg.MaxGenerations != DefaultMaxGenerations {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.HighWatermark <= cfg.ConsciousnessTarget {
		t.Fatalf("default high watermark %v must exceed the target %v", cfg.HighWatermark, cfg.ConsciousnessTarget)
	}
}

func TestParseDNA_Malformed(t *testing.T) {
	if _, err := ParseDNA([]byte("name: [unclosed")); err == nil {
		t.Fatal("expected error for malformed blob")
	}
}

func TestEvolutionConfig_NormalizeAndRateScale(t *testing.T) {
	cfg := EvolutionConfig{ConsciousnessTarget: 1.7, Rate: "reckless"}
	cfg.Normalize()
	if cfg.Name == "" {
		t.Fatal("expected generated name")
	}
	if cfg.ConsciousnessTarget != DefaultConsciousnessTarget {
		t.Fatalf("out-of-range target not defaulted: %v", cfg.ConsciousnessTarget)
	}
	if cfg.Rate != RateConservative {
		t.Fatalf("unknown rate not defaulted: %v", cfg.Rate)
	}
	if cfg.RateScale() != 1.0 {
		t.Fatalf("conservative scale wrong: %v", cfg.RateScale())
	}

	cfg.Rate = RateAggressive
	if cfg.RateScale() != 1.5 {
		t.Fatalf("aggressive scale wrong: %v", cfg.RateScale())
	}
}

func TestEnvironment_Credential(t *testing.T) {
	env := Environment{Mode: ModeProduction}
	if env.HasCredential() {
		t.Fatal("empty credential reported present")
	}
	env.Credential = "token"
	if !env.HasCredential() {
		t.Fatal("credential not detected")
	}
}

func TestNewEvent_Fields(t *testing.T) {
	ev := NewEvent(EvolutionProgress, ProgressPayload{Organism: NewOrganismState("alpha", 0, 0, 0)})
	if ev.ID == "" || ev.Timestamp.IsZero() || ev.Name != EvolutionProgress {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", ev)
	}

	other := NewEvent(EvolutionProgress, nil)
	if other.ID == ev.ID {
		t.Fatal("expected unique event ids")
	}
}
