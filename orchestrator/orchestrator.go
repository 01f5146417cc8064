package orchestrator

import (
	"context"
	"time"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/logging"
)

// Default workflow tuning. Implementation-specific constants preserved as
// configurable defaults.
var DefaultCriticalGenes = []string{"self_healing", "quantum_entanglement", "threat_detection"}

const (
	DefaultDeficitThreshold     = 3
	DefaultProvisionRetryDelay  = 30 * time.Second
	DefaultFollowUpDelay        = 5 * time.Second
	DefaultMaxProvisionAttempts = 3
)

// Priority tags attached to designed bounties.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
)

// Provisioner is the idempotent, retryable external call that stands up
// supporting infrastructure for a designed bounty.
type Provisioner interface {
	Provision(ctx context.Context, genes []string) error
}

// ProvisionerFunc adapts a plain function to the Provisioner interface.
type ProvisionerFunc func(ctx context.Context, genes []string) error

// Provision implements Provisioner.
func (f ProvisionerFunc) Provision(ctx context.Context, genes []string) error { return f(ctx, genes) }

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Provisioner stands up bounty infrastructure. Nil always succeeds.
	Provisioner Provisioner
	// Archive receives terminal organism snapshots. Optional.
	Archive core.ArchiveStore
	// CriticalGenes force critical priority when any deficit item matches.
	CriticalGenes []string
	// DeficitThreshold is the count above which priority becomes high.
	DeficitThreshold int
	// ProvisionRetryDelay spaces delayed provisioning retries. Values <= 0
	// retry synchronously (useful in tests).
	ProvisionRetryDelay time.Duration
	// MaxProvisionAttempts bounds provisioning retries.
	MaxProvisionAttempts int
	// FollowUpDelay spaces the next-lineage kickoff after a transcendence.
	// Values <= 0 emit synchronously.
	FollowUpDelay time.Duration
	// Logger receives transition diagnostics.
	Logger logging.Logger
}

// Orchestrator is the collaboration workflow. It consumes events, mutates its
// WorkflowState and produces follow-up events; GetWorkflowState and
// ResetWorkflowState are the only direct accessors.
type Orchestrator struct {
	channel              core.Channel
	state                *core.WorkflowState
	provisioner          Provisioner
	archive              core.ArchiveStore
	criticalGenes        map[string]bool
	deficitThreshold     int
	provisionRetryDelay  time.Duration
	maxProvisionAttempts int
	followUpDelay        time.Duration
	logger               logging.Logger
}

var _ core.Consumer = (*Orchestrator)(nil)

// New constructs an Orchestrator publishing on channel. Call Attach (or
// bus.Channel.Register) to wire its subscriptions.
func New(channel core.Channel, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		CriticalGenes:        DefaultCriticalGenes,
		DeficitThreshold:     DefaultDeficitThreshold,
		ProvisionRetryDelay:  DefaultProvisionRetryDelay,
		MaxProvisionAttempts: DefaultMaxProvisionAttempts,
		FollowUpDelay:        DefaultFollowUpDelay,
		Logger:               logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	critical := make(map[string]bool, len(opts.CriticalGenes))
	for _, g := range opts.CriticalGenes {
		critical[g] = true
	}

	return &Orchestrator{
		channel:              channel,
		state:                core.NewWorkflowState(),
		provisioner:          opts.Provisioner,
		archive:              opts.Archive,
		criticalGenes:        critical,
		deficitThreshold:     opts.DeficitThreshold,
		provisionRetryDelay:  opts.ProvisionRetryDelay,
		maxProvisionAttempts: opts.MaxProvisionAttempts,
		followUpDelay:        opts.FollowUpDelay,
		logger:               opts.Logger,
	}
}

// Consumes implements core.Consumer declaring the full transition table.
func (o *Orchestrator) Consumes() []core.EventName {
	return []core.EventName{
		core.ExpansionReadiness,
		core.GeneDeficitDetected,
		core.NewGeneBountyDesign,
		core.PublishBounty,
		core.TranscendenceComplete,
		core.TranscendenceAborted,
		core.ExternalizationBlocked,
	}
}

// HandleEvent implements core.Consumer.
func (o *Orchestrator) HandleEvent(ev core.Event) {
	switch ev.Name {
	case core.ExpansionReadiness:
		o.onReadiness(ev)
	case core.GeneDeficitDetected:
		o.onDeficit(ev)
	case core.NewGeneBountyDesign:
		o.onBountyDesign(ev)
	case core.PublishBounty:
		o.onPublishBounty(ev)
	case core.TranscendenceComplete:
		o.onTranscendence(ev)
	case core.TranscendenceAborted, core.ExternalizationBlocked:
		o.onValidationFailure(ev)
	}
}

// GetWorkflowState returns a snapshot of the milestone map plus safe mode.
func (o *Orchestrator) GetWorkflowState() (map[string]bool, bool) {
	return o.state.Snapshot()
}

// ResetWorkflowState clears all milestones and leaves safe mode.
func (o *Orchestrator) ResetWorkflowState() {
	o.state.Reset()
	o.logger.Info("workflow state reset")
}

func (o *Orchestrator) onReadiness(ev core.Event) {
	payload, ok := ev.Payload.(core.ReadinessPayload)
	if !ok || !payload.Readiness {
		return
	}
	o.state.Mark(core.MilestoneExpansionReadiness)
	o.channel.Publish(core.StartGeneDeficitAnalysis, core.GenericPayload{"requested_by": payload.Agent})
}

func (o *Orchestrator) onDeficit(ev core.Event) {
	payload, ok := ev.Payload.(core.DeficitPayload)
	if !ok {
		return
	}
	o.state.Mark(core.MilestoneGeneDeficitAnalysis)
	o.channel.Publish(core.NewGeneBountyDesign, core.BountyPayload{
		Genes:    payload.Genes,
		Priority: o.priorityFor(payload.Genes),
	})
}

func (o *Orchestrator) onBountyDesign(ev core.Event) {
	payload, ok := ev.Payload.(core.BountyPayload)
	if !ok {
		return
	}
	o.state.Mark(core.MilestoneBountyDesigned)

	if o.state.SafeMode() {
		o.logger.Warn("safe mode active, skipping infrastructure provisioning for bounty %v", payload.Genes)
		return
	}

	o.provision(payload, 1)
}

func (o *Orchestrator) provision(payload core.BountyPayload, attempt int) {
	if o.state.SafeMode() {
		return
	}

	var err error
	if o.provisioner != nil {
		err = o.provisioner.Provision(context.Background(), payload.Genes)
	}
	if err == nil {
		o.state.Mark(core.MilestoneInfrastructureProvisioned)
		o.channel.Publish(core.PublishBounty, payload)
		return
	}

	o.channel.Publish(core.InfrastructureProvisioningFailed, core.ProvisioningFailurePayload{
		Reason:  err.Error(),
		Attempt: attempt,
	})

	if attempt >= o.maxProvisionAttempts {
		o.logger.Error("infrastructure provisioning abandoned after %d attempts: %v", attempt, err)
		return
	}

	o.logger.Warn("infrastructure provisioning attempt %d failed, retrying in %v: %v", attempt, o.provisionRetryDelay, err)
	o.after(o.provisionRetryDelay, func() { o.provision(payload, attempt+1) })
}

func (o *Orchestrator) onPublishBounty(ev core.Event) {
	payload, ok := ev.Payload.(core.BountyPayload)
	if !ok {
		return
	}
	o.state.Mark(core.MilestoneBountyPublished)
	o.channel.Publish(core.MarketplaceAvailable, payload)
}

func (o *Orchestrator) onTranscendence(ev core.Event) {
	payload, ok := ev.Payload.(core.TranscendencePayload)
	if !ok {
		return
	}
	o.state.Mark(core.MilestoneTranscendenceComplete)

	if o.archive != nil {
		if err := o.archive.ArchiveOrganism(payload.Organism.Name, payload.Organism); err != nil {
			o.logger.Warn("failed to archive organism %s: %v", payload.Organism.Name, err)
		}
	}
	o.channel.Publish(core.StateArchived, core.ArchivePayload{Organism: payload.Organism})

	o.after(o.followUpDelay, func() {
		o.channel.Publish(core.LineageScheduled, core.GenericPayload{"previous": payload.Organism.Name})
	})
}

func (o *Orchestrator) onValidationFailure(ev core.Event) {
	if o.state.SafeMode() {
		return
	}
	o.state.SetSafeMode(true)

	reason := "validation failure reported upstream"
	switch p := ev.Payload.(type) {
	case core.AbortPayload:
		reason = p.Reason
	case core.BlockedPayload:
		reason = p.Reason
	}

	o.logger.Warn("entering safe mode: %s", reason)
	o.channel.Publish(core.SafeModeActivated, core.SafeModePayload{Reason: reason})
}

// priorityFor computes the bounty priority tag: critical if any deficit item
// matches the critical set, high if the count exceeds the threshold, else
// medium.
func (o *Orchestrator) priorityFor(genes []string) string {
	for _, g := range genes {
		if o.criticalGenes[g] {
			return PriorityCritical
		}
	}
	if len(genes) > o.deficitThreshold {
		return PriorityHigh
	}
	return PriorityMedium
}

// after schedules fn; non-positive delays run synchronously so tests and
// tightly-coupled flows stay deterministic.
func (o *Orchestrator) after(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}
	time.AfterFunc(delay, fn)
}
