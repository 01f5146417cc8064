package evolution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/generator"
	"github.com/hupe1980/evomesh/logging"
	"github.com/hupe1980/evomesh/pipeline"
)

// Externalizer is the pipeline contract the machine drives on transcendence.
// Satisfied by *pipeline.Externalizer.
type Externalizer interface {
	SmartExternalize(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Channel receives progress and terminal events. Required.
	Channel core.Channel
	// Validator is the gate consulted on the owning repository when the
	// consciousness target is crossed. Nil skips the gate (pure simulation).
	Validator pipeline.Validator
	// Externalizer publishes the generated artifact. Nil simulates success.
	Externalizer Externalizer
	// Generator produces the pending artifact at transcendence time.
	Generator generator.Generator
	// Artifacts stages generated artifacts for later inspection.
	Artifacts core.ArtifactStore
	// Repository is the owning working copy externalized on transcendence.
	Repository string
	// Rules overrides the mutation rule set.
	Rules []Rule
	// Scorer overrides the seeded scoring function.
	Scorer Scorer
	// Logger receives per-cycle diagnostics.
	Logger logging.Logger
}

// Machine owns one organism's lifecycle: Running until either Transcended
// (terminal, consciousness crossed the target and externalization succeeded)
// or Exhausted (terminal, generation budget spent). A Machine is not safe for
// concurrent use; each lineage owns exactly one.
type Machine struct {
	cfg    core.EvolutionConfig
	state  core.OrganismState
	rules  []Rule
	scorer Scorer

	channel      core.Channel
	validator    pipeline.Validator
	externalizer Externalizer
	generator    generator.Generator
	artifacts    core.ArtifactStore
	repository   string
	logger       logging.Logger

	completed bool // externalization-confirmed transcendence
	halted    bool // threshold crossed but gate/pipeline refused
	haltErr   error
}

// New constructs a Machine for one lineage.
func New(cfg core.EvolutionConfig, optFns ...func(o *Options)) *Machine {
	cfg.Normalize()

	opts := Options{
		Generator: generator.NewStaticGenerator("", ""),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.Scorer == nil {
		opts.Scorer = NewScorer(cfg)
	}

	return &Machine{
		cfg:          cfg,
		state:        core.NewOrganismState(cfg.Name, cfg.InitialFitness, cfg.InitialConsciousness, cfg.InitialStability),
		rules:        opts.Rules,
		scorer:       opts.Scorer,
		channel:      opts.Channel,
		validator:    opts.Validator,
		externalizer: opts.Externalizer,
		generator:    opts.Generator,
		artifacts:    opts.Artifacts,
		repository:   opts.Repository,
		logger:       opts.Logger,
	}
}

// State returns a snapshot of the organism.
func (m *Machine) State() core.OrganismState { return m.state.Snapshot() }

// Run advances the organism cycle by cycle until a terminal condition and
// returns a well-formed terminal result for every outcome, including
// exhaustion. Context cancellation settles the lineage as failed.
func (m *Machine) Run(ctx context.Context) core.LineageResult {
	start := time.Now()

	for !m.completed && !m.halted && m.state.Generation <= m.cfg.MaxGenerations {
		select {
		case <-ctx.Done():
			return m.result(start, core.OutcomeFailed, ctx.Err())
		default:
		}

		m.Cycle(ctx)

		if delay := m.cfg.CycleDelay(); delay > 0 && !m.completed && !m.halted {
			select {
			case <-ctx.Done():
				return m.result(start, core.OutcomeFailed, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	switch {
	case m.completed:
		return m.result(start, core.OutcomeTranscended, nil)
	case m.halted:
		return m.result(start, core.OutcomeFailed, m.haltErr)
	default:
		return m.result(start, core.OutcomeExhausted, nil)
	}
}

// Cycle performs one full mutation cycle: rules, drift, clamp, terminal
// evaluation, progress publication, generation advance. A cycle that crosses
// the consciousness target ends with the terminal event instead of a progress
// event.
func (m *Machine) Cycle(ctx context.Context) {
	for _, rule := range m.rules {
		if rule.Applies(m.state, m.cfg) {
			rule.Apply(&m.state, m.cfg, m.scorer)
		}
	}

	m.state.Fitness += m.scorer.Drift(m.cfg.Drift)
	m.state.Consciousness += m.scorer.Drift(m.cfg.Drift)
	m.state.Stability += m.scorer.Drift(m.cfg.Drift)
	m.state.Clamp()

	if m.state.Consciousness >= m.cfg.ConsciousnessTarget && !m.state.Transcended {
		m.state.Transcended = true
		m.evaluateTranscendence(ctx)
		// The completion/abort/blocked event is terminal: nothing may be
		// published for this lineage after it.
		return
	}

	m.publish(core.EvolutionProgress, core.ProgressPayload{Organism: m.state.Snapshot()})

	m.logger.Debug("cycle complete organism=%s generation=%d consciousness=%.3f fitness=%.3f stability=%.3f",
		m.state.Name, m.state.Generation, m.state.Consciousness, m.state.Fitness, m.state.Stability)

	m.state.Generation++
}

// evaluateTranscendence runs the gate and the externalization pipeline once
// the consciousness target is crossed. Metric threshold crossing and
// transcendence completion stay distinct: a refused externalization halts the
// lineage with an abort or blocked event, never transcendenceComplete.
func (m *Machine) evaluateTranscendence(ctx context.Context) {
	if m.validator != nil && m.repository != "" {
		vr := m.validator.Validate(ctx, m.repository)
		if !vr.Passed {
			reason := fmt.Sprintf("validation gate refused externalization for %s", m.state.Name)
			m.publish(core.TranscendenceAborted, core.AbortPayload{Organism: m.state.Name, Reason: reason, Result: vr})
			m.halt(errors.New(reason))
			return
		}
	}

	art, err := m.generator.Generate(ctx, m.state.Snapshot())
	if err != nil {
		reason := fmt.Sprintf("artifact generation failed: %v", err)
		m.publish(core.ExternalizationBlocked, core.BlockedPayload{Organism: m.state.Name, Reason: reason})
		m.halt(errors.New(reason))
		return
	}
	if m.artifacts != nil {
		if err := m.artifacts.Save(m.state.Name, art.Name, art.Data); err != nil {
			m.logger.Warn("failed to stage artifact %s: %v", art.Name, err)
		}
	}

	if m.externalizer == nil {
		// No pipeline wired: simulated externalization succeeds immediately.
		m.complete(art.Name, "")
		return
	}

	if m.repository != "" {
		if err := os.WriteFile(filepath.Join(m.repository, art.Name), art.Data, 0o644); err != nil {
			reason := fmt.Sprintf("failed to write artifact into working copy: %v", err)
			m.publish(core.ExternalizationBlocked, core.BlockedPayload{Organism: m.state.Name, Reason: reason})
			m.halt(errors.New(reason))
			return
		}
	}

	res := m.externalizer.SmartExternalize(ctx, pipeline.Request{
		Target:  m.repository,
		Files:   []string{art.Name},
		Message: fmt.Sprintf("feat(%s): externalize transcendence artifact (generation %d)", m.state.Name, m.state.Generation),
	})

	switch res.Status {
	case pipeline.StatusOK, pipeline.StatusNoOp:
		m.complete(art.Name, res.CommitMessage)
	case pipeline.StatusBlocked:
		m.publish(core.ExternalizationBlocked, core.BlockedPayload{Organism: m.state.Name, Reason: res.Reason})
		m.halt(errors.New(res.Reason))
	default:
		reason := fmt.Sprintf("externalization failed: %s", res.Reason)
		m.publish(core.ExternalizationBlocked, core.BlockedPayload{Organism: m.state.Name, Reason: reason})
		m.halt(errors.New(reason))
	}
}

func (m *Machine) complete(artifactRef, commitMessage string) {
	m.completed = true
	m.publish(core.TranscendenceComplete, core.TranscendencePayload{
		Organism:      m.state.Snapshot(),
		ArtifactRef:   artifactRef,
		CommitMessage: commitMessage,
	})
}

func (m *Machine) halt(err error) {
	m.halted = true
	m.haltErr = err
}

func (m *Machine) publish(name core.EventName, payload core.Payload) {
	if m.channel != nil {
		m.channel.Publish(name, payload)
	}
}

func (m *Machine) result(start time.Time, outcome core.LineageOutcome, err error) core.LineageResult {
	res := core.LineageResult{
		Organism:   m.state.Name,
		Success:    err == nil,
		Outcome:    outcome,
		FinalState: m.state.Snapshot(),
		Duration:   time.Since(start),
		Err:        err,
	}

	if rich, ok := m.logger.(*logging.EvoMeshLogger); ok {
		rich.LogLineageRun(res.Organism, res.FinalState.Generation, res.Duration, string(res.Outcome), res.Err)
	} else {
		m.logger.Info("lineage %s settled outcome=%s generations=%d consciousness=%.3f",
			res.Organism, res.Outcome, res.FinalState.Generation, res.FinalState.Consciousness)
	}

	return res
}
