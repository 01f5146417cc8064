package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/evomesh/archive"
	"github.com/hupe1980/evomesh/bus"
	"github.com/hupe1980/evomesh/core"
)

// recorder captures published events by name for later assertions. Handlers
// run synchronously on the publisher goroutine, so no locking is needed in
// these single-goroutine tests.
type recorder struct {
	events map[core.EventName][]core.Event
}

func newRecorder(c *bus.Channel, names ...core.EventName) *recorder {
	r := &recorder{events: map[core.EventName][]core.Event{}}
	for _, name := range names {
		name := name
		c.Subscribe(name, func(ev core.Event) { r.events[name] = append(r.events[name], ev) })
	}
	return r
}

func (r *recorder) count(name core.EventName) int { return len(r.events[name]) }

// newTestOrchestrator wires an orchestrator with synchronous delays onto a
// fresh channel.
func newTestOrchestrator(t *testing.T, optFns ...func(o *Options)) (*Orchestrator, *bus.Channel) {
	t.Helper()
	channel := bus.New()
	orch := New(channel, append([]func(o *Options){func(o *Options) {
		o.ProvisionRetryDelay = 0
		o.FollowUpDelay = 0
	}}, optFns...)...)
	channel.Register(orch)
	return orch, channel
}

func TestOrchestrator_ExpansionChain(t *testing.T) {
	orch, channel := newTestOrchestrator(t)
	rec := newRecorder(channel,
		core.StartGeneDeficitAnalysis,
		core.NewGeneBountyDesign,
		core.PublishBounty,
		core.MarketplaceAvailable,
	)

	channel.Publish(core.ExpansionReadiness, core.ReadinessPayload{Agent: "scout-1", Readiness: true})
	channel.Publish(core.GeneDeficitDetected, core.DeficitPayload{Genes: []string{"replication", "telemetry"}})

	assert.Equal(t, 1, rec.count(core.StartGeneDeficitAnalysis))
	assert.Equal(t, 1, rec.count(core.NewGeneBountyDesign))
	assert.Equal(t, 1, rec.count(core.PublishBounty))
	assert.Equal(t, 1, rec.count(core.MarketplaceAvailable))

	milestones, safeMode := orch.GetWorkflowState()
	assert.False(t, safeMode)
	for _, m := range []string{
		core.MilestoneExpansionReadiness,
		core.MilestoneGeneDeficitAnalysis,
		core.MilestoneBountyDesigned,
		core.MilestoneInfrastructureProvisioned,
		core.MilestoneBountyPublished,
	} {
		assert.True(t, milestones[m], "milestone %s not reached", m)
	}
}

func TestOrchestrator_NotReadyIsIgnored(t *testing.T) {
	orch, channel := newTestOrchestrator(t)
	rec := newRecorder(channel, core.StartGeneDeficitAnalysis)

	channel.Publish(core.ExpansionReadiness, core.ReadinessPayload{Agent: "scout-1", Readiness: false})

	assert.Zero(t, rec.count(core.StartGeneDeficitAnalysis))
	milestones, _ := orch.GetWorkflowState()
	assert.False(t, milestones[core.MilestoneExpansionReadiness])
}

func TestOrchestrator_BountyPriority(t *testing.T) {
	tests := []struct {
		name     string
		genes    []string
		priority string
	}{
		{"critical gene wins", []string{"telemetry", "self_healing"}, PriorityCritical},
		{"large deficit is high", []string{"a", "b", "c", "d"}, PriorityHigh},
		{"small deficit is medium", []string{"a", "b"}, PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, channel := newTestOrchestrator(t)
			rec := newRecorder(channel, core.NewGeneBountyDesign)

			channel.Publish(core.GeneDeficitDetected, core.DeficitPayload{Genes: tt.genes})

			require.Equal(t, 1, rec.count(core.NewGeneBountyDesign))
			payload := rec.events[core.NewGeneBountyDesign][0].Payload.(core.BountyPayload)
			assert.Equal(t, tt.priority, payload.Priority)
			assert.Equal(t, tt.genes, payload.Genes)
		})
	}
}

func TestOrchestrator_ProvisioningRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	provisioner := ProvisionerFunc(func(_ context.Context, genes []string) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("quota exhausted")
		}
		return nil
	})

	orch, channel := newTestOrchestrator(t, func(o *Options) { o.Provisioner = provisioner })
	rec := newRecorder(channel, core.InfrastructureProvisioningFailed, core.PublishBounty)

	channel.Publish(core.NewGeneBountyDesign, core.BountyPayload{Genes: []string{"g"}, Priority: PriorityMedium})

	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, rec.count(core.InfrastructureProvisioningFailed))
	assert.Equal(t, 1, rec.count(core.PublishBounty))

	milestones, _ := orch.GetWorkflowState()
	assert.True(t, milestones[core.MilestoneInfrastructureProvisioned])
}

func TestOrchestrator_ProvisioningAbandonedAfterMaxAttempts(t *testing.T) {
	attempts := 0
	provisioner := ProvisionerFunc(func(context.Context, []string) error {
		attempts++
		return fmt.Errorf("region down")
	})

	orch, channel := newTestOrchestrator(t, func(o *Options) {
		o.Provisioner = provisioner
		o.MaxProvisionAttempts = 2
	})
	rec := newRecorder(channel, core.InfrastructureProvisioningFailed, core.PublishBounty)

	channel.Publish(core.NewGeneBountyDesign, core.BountyPayload{Genes: []string{"g"}, Priority: PriorityMedium})

	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, rec.count(core.InfrastructureProvisioningFailed))
	assert.Zero(t, rec.count(core.PublishBounty))

	milestones, _ := orch.GetWorkflowState()
	assert.False(t, milestones[core.MilestoneInfrastructureProvisioned])
}

func TestOrchestrator_ValidationFailureEntersSafeModeOnce(t *testing.T) {
	orch, channel := newTestOrchestrator(t)
	rec := newRecorder(channel, core.SafeModeActivated)

	channel.Publish(core.TranscendenceAborted, core.AbortPayload{Organism: "alpha", Reason: "gate refused"})
	channel.Publish(core.ExternalizationBlocked, core.BlockedPayload{Organism: "beta", Reason: "no credential"})

	// only the first failure flips the flag and announces it
	require.Equal(t, 1, rec.count(core.SafeModeActivated))
	payload := rec.events[core.SafeModeActivated][0].Payload.(core.SafeModePayload)
	assert.Equal(t, "gate refused", payload.Reason)

	_, safeMode := orch.GetWorkflowState()
	assert.True(t, safeMode)
}

func TestOrchestrator_SafeModeSuppressesProvisioning(t *testing.T) {
	called := false
	provisioner := ProvisionerFunc(func(context.Context, []string) error {
		called = true
		return nil
	})

	orch, channel := newTestOrchestrator(t, func(o *Options) { o.Provisioner = provisioner })
	rec := newRecorder(channel, core.PublishBounty)

	channel.Publish(core.ExternalizationBlocked, core.BlockedPayload{Organism: "alpha", Reason: "blocked"})
	channel.Publish(core.NewGeneBountyDesign, core.BountyPayload{Genes: []string{"g"}, Priority: PriorityMedium})

	assert.False(t, called, "safe mode must suppress provisioning")
	assert.Zero(t, rec.count(core.PublishBounty))

	// the design milestone is still recorded for observability
	milestones, _ := orch.GetWorkflowState()
	assert.True(t, milestones[core.MilestoneBountyDesigned])
}

func TestOrchestrator_TranscendenceArchivesAndSchedulesNextLineage(t *testing.T) {
	store := archive.NewInMemoryStore()
	orch, channel := newTestOrchestrator(t, func(o *Options) { o.Archive = store })
	rec := newRecorder(channel, core.StateArchived, core.LineageScheduled)

	organism := core.NewOrganismState("alpha", 0.9, 0.96, 0.8)
	organism.Transcended = true
	channel.Publish(core.TranscendenceComplete, core.TranscendencePayload{Organism: organism, ArtifactRef: "alpha.yaml"})

	assert.Equal(t, 1, rec.count(core.StateArchived))
	assert.Equal(t, 1, rec.count(core.LineageScheduled))

	archived, ok := store.Organism("alpha")
	require.True(t, ok)
	assert.True(t, archived.Transcended)

	milestones, _ := orch.GetWorkflowState()
	assert.True(t, milestones[core.MilestoneTranscendenceComplete])
}

func TestOrchestrator_ResetWorkflowState(t *testing.T) {
	orch, channel := newTestOrchestrator(t)

	channel.Publish(core.ExpansionReadiness, core.ReadinessPayload{Readiness: true})
	channel.Publish(core.TranscendenceAborted, core.AbortPayload{Organism: "alpha", Reason: "gate refused"})

	orch.ResetWorkflowState()

	milestones, safeMode := orch.GetWorkflowState()
	assert.Empty(t, milestones)
	assert.False(t, safeMode)
}
