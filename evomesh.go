// Package evomesh provides a high-level façade over the evolution machine,
// the event channel and the safety-gated externalization pipeline enabling
// rapid construction of autonomous evolution systems. Most applications
// interact with this package by:
//  1. Creating an EvoMesh via New() (optionally overriding default in-memory services)
//  2. Running a single lineage end to end (RunOrganism) or many concurrently (RunLineages)
//  3. Observing progress through the shared event channel and the workflow state
//
// All defaults are safe for local development and testing; production
// deployments supply a real repository target, a credential and a structured
// logger.
package evomesh

import (
	"context"

	"github.com/hupe1980/evomesh/archive"
	"github.com/hupe1980/evomesh/artifact"
	"github.com/hupe1980/evomesh/bus"
	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/evolution"
	"github.com/hupe1980/evomesh/gate"
	"github.com/hupe1980/evomesh/generator"
	"github.com/hupe1980/evomesh/lineage"
	"github.com/hupe1980/evomesh/logging"
	"github.com/hupe1980/evomesh/orchestrator"
	"github.com/hupe1980/evomesh/pipeline"
)

// Options configures the EvoMesh instance.
type Options struct {
	// Environment supplies the simulation/production switch and credential.
	Environment core.Environment
	// Channel is the shared event channel (defaults to a fresh in-memory one).
	Channel *bus.Channel
	// Gate overrides the validation gate.
	Gate *gate.Gate
	// Externalizer overrides the externalization pipeline. When nil one is
	// constructed automatically if a repository is configured or the
	// environment runs in production mode (so credential enforcement always
	// applies); otherwise externalization is simulated.
	Externalizer evolution.Externalizer
	// Generator produces the transcendence artifacts.
	Generator generator.Generator
	// ArtifactStore stages generated artifacts (defaults to in-memory).
	ArtifactStore core.ArtifactStore
	// Archive stores terminal snapshots and results (defaults to in-memory).
	Archive core.ArchiveStore
	// Provisioner stands up bounty infrastructure for the orchestrator.
	Provisioner orchestrator.Provisioner
	// Repository is the owning working copy externalized on transcendence.
	Repository string
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// EvoMesh is the high-level façade aggregating the event channel, the gate,
// the pipeline, the orchestrator and the lineage runner.
type EvoMesh struct {
	opts         Options
	channel      *bus.Channel
	gate         *gate.Gate
	externalizer evolution.Externalizer
	orchestrator *orchestrator.Orchestrator
}

// New creates a new EvoMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation, and the
// orchestrator's subscriptions are wired once, here.
func New(optFns ...func(o *Options)) *EvoMesh {
	opts := Options{
		Environment:   core.Environment{Mode: core.ModeSimulation},
		Generator:     generator.NewStaticGenerator("", ""),
		ArtifactStore: artifact.NewInMemoryStore(),
		Archive:       archive.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Channel == nil {
		opts.Channel = bus.New(func(o *bus.Options) { o.Logger = opts.Logger })
	}
	if opts.Gate == nil {
		opts.Gate = gate.New(func(o *gate.Options) { o.Logger = opts.Logger })
	}
	if opts.Externalizer == nil && (opts.Repository != "" || opts.Environment.Mode == core.ModeProduction) {
		opts.Externalizer = pipeline.New(func(o *pipeline.Options) {
			o.Environment = opts.Environment
			o.Validator = opts.Gate
			o.Logger = opts.Logger
		})
	}

	orch := orchestrator.New(opts.Channel, func(o *orchestrator.Options) {
		o.Archive = opts.Archive
		o.Provisioner = opts.Provisioner
		o.Logger = opts.Logger
	})
	opts.Channel.Register(orch)

	return &EvoMesh{
		opts:         opts,
		channel:      opts.Channel,
		gate:         opts.Gate,
		externalizer: opts.Externalizer,
		orchestrator: orch,
	}
}

// Channel exposes the shared event channel for additional subscribers.
func (m *EvoMesh) Channel() *bus.Channel { return m.channel }

// Archive exposes the archive store.
func (m *EvoMesh) Archive() core.ArchiveStore { return m.opts.Archive }

// Statistics returns the shared channel's event statistics.
func (m *EvoMesh) Statistics() bus.Statistics { return m.channel.GetStatistics() }

// GetWorkflowState returns the orchestrator's milestone snapshot + safe mode.
func (m *EvoMesh) GetWorkflowState() (map[string]bool, bool) {
	return m.orchestrator.GetWorkflowState()
}

// ResetWorkflowState clears the orchestrator's milestones and safe mode.
func (m *EvoMesh) ResetWorkflowState() { m.orchestrator.ResetWorkflowState() }

// RunOrganism runs one lineage end to end on the shared channel and returns
// its terminal result. The orchestrator reacts to the lineage's events as
// they are published.
func (m *EvoMesh) RunOrganism(ctx context.Context, cfg core.EvolutionConfig) core.LineageResult {
	machine := evolution.New(cfg, m.machineOptions(m.channel))
	res := machine.Run(ctx)

	if err := m.opts.Archive.ArchiveResult(res); err != nil {
		m.opts.Logger.Warn("failed to archive lineage result for %s: %v", res.Organism, err)
	}
	return res
}

// RunLineages runs many isolated lineages concurrently and returns every
// settlement. Each lineage gets a private channel; progress is forwarded to
// the optional progress channel configured through optFns.
func (m *EvoMesh) RunLineages(ctx context.Context, organisms []core.EvolutionConfig, optFns ...func(o *lineage.Options)) []core.LineageResult {
	runner := lineage.New(append([]func(o *lineage.Options){func(o *lineage.Options) {
		o.Logger = m.opts.Logger
		o.ConfigureMachine = func(_ core.EvolutionConfig, mo *evolution.Options) {
			m.applyMachineOptions(mo)
		}
	}}, optFns...)...)

	results := runner.RunLineages(ctx, organisms)

	for _, res := range results {
		if err := m.opts.Archive.ArchiveResult(res); err != nil {
			m.opts.Logger.Warn("failed to archive lineage result for %s: %v", res.Organism, err)
		}
	}
	return results
}

func (m *EvoMesh) machineOptions(channel core.Channel) func(o *evolution.Options) {
	return func(o *evolution.Options) {
		o.Channel = channel
		m.applyMachineOptions(o)
	}
}

func (m *EvoMesh) applyMachineOptions(o *evolution.Options) {
	o.Validator = m.gate
	o.Externalizer = m.externalizer
	o.Generator = m.opts.Generator
	o.Artifacts = m.opts.ArtifactStore
	o.Repository = m.opts.Repository
	o.Logger = m.opts.Logger
}
