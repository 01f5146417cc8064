package core

import (
	"time"

	"github.com/google/uuid"
)

// EventName tags an event with its semantic category. The set below is closed
// for the built-in workflow but extensible: custom names publish and subscribe
// like any other, carrying a GenericPayload.
type EventName string

const (
	// EvolutionProgress carries a full organism snapshot after each cycle.
	EvolutionProgress EventName = "evolutionProgress"
	// TranscendenceComplete signals a lineage whose externalization succeeded.
	// It is only emitted after a successful externalization; crossing the
	// consciousness threshold alone is not sufficient.
	TranscendenceComplete EventName = "transcendenceComplete"
	// TranscendenceAborted signals a threshold crossing whose validation gate
	// check failed; the lineage halts without completing transcendence.
	TranscendenceAborted EventName = "transcendenceAborted"
	// ExternalizationBlocked signals an externalization refused outright
	// (production mode without credential, or an aborted pipeline run).
	ExternalizationBlocked EventName = "externalizationBlocked"
	// ExpansionReadiness is emitted by an agent that considers the mesh ready
	// for capability expansion.
	ExpansionReadiness EventName = "expansionReadiness"
	// StartGeneDeficitAnalysis asks the deficit analyzer to run.
	StartGeneDeficitAnalysis EventName = "startGeneDeficitAnalysis"
	// GeneDeficitDetected reports the missing gene set found by analysis.
	GeneDeficitDetected EventName = "geneDeficitDetected"
	// NewGeneBountyDesign announces a designed bounty for missing genes.
	NewGeneBountyDesign EventName = "newGeneBountyDesign"
	// PublishBounty requests publication of a designed bounty.
	PublishBounty EventName = "publishBounty"
	// MarketplaceAvailable signals the published bounty is visible.
	MarketplaceAvailable EventName = "marketplaceAvailable"
	// InfrastructureProvisioningFailed reports a failed provisioning attempt.
	InfrastructureProvisioningFailed EventName = "infrastructureProvisioningFailed"
	// SafeModeActivated signals the orchestrator entered degraded safe mode.
	SafeModeActivated EventName = "safeModeActivated"
	// StateArchived reports that a terminal organism snapshot was archived.
	StateArchived EventName = "stateArchived"
	// LineageScheduled is the delayed follow-up that kicks off the next
	// lineage after a completed transcendence.
	LineageScheduled EventName = "lineageScheduled"
)

// Payload is the closed-but-extensible sum type carried by events. Each event
// name has a fixed payload shape; GenericPayload is the escape hatch for
// custom names and for events reconstructed from the durable log.
type Payload interface{ isPayload() }

// ProgressPayload accompanies EvolutionProgress.
type ProgressPayload struct {
	Organism OrganismState `json:"organism"`
}

// TranscendencePayload accompanies TranscendenceComplete.
type TranscendencePayload struct {
	Organism      OrganismState `json:"organism"`
	ArtifactRef   string        `json:"artifact_ref"`
	CommitMessage string        `json:"commit_message,omitempty"`
}

// AbortPayload accompanies TranscendenceAborted and carries the gate result
// that blocked externalization.
type AbortPayload struct {
	Organism string           `json:"organism"`
	Reason   string           `json:"reason"`
	Result   ValidationResult `json:"result"`
}

// BlockedPayload accompanies ExternalizationBlocked.
type BlockedPayload struct {
	Organism string `json:"organism"`
	Reason   string `json:"reason"`
	Mode     string `json:"mode,omitempty"`
}

// ReadinessPayload accompanies ExpansionReadiness.
type ReadinessPayload struct {
	Agent     string `json:"agent,omitempty"`
	Readiness bool   `json:"readiness"`
}

// DeficitPayload accompanies GeneDeficitDetected.
type DeficitPayload struct {
	Genes []string `json:"genes"`
}

// BountyPayload accompanies NewGeneBountyDesign, PublishBounty and
// MarketplaceAvailable.
type BountyPayload struct {
	Genes    []string `json:"genes"`
	Priority string   `json:"priority"`
}

// ProvisioningFailurePayload accompanies InfrastructureProvisioningFailed.
type ProvisioningFailurePayload struct {
	Reason  string `json:"reason"`
	Attempt int    `json:"attempt"`
}

// SafeModePayload accompanies SafeModeActivated.
type SafeModePayload struct {
	Reason string `json:"reason"`
}

// ArchivePayload accompanies StateArchived.
type ArchivePayload struct {
	Organism OrganismState `json:"organism"`
}

// GenericPayload carries arbitrary key/value data for custom event names and
// replayed history.
type GenericPayload map[string]any

func (ProgressPayload) isPayload()            {}
func (TranscendencePayload) isPayload()       {}
func (AbortPayload) isPayload()               {}
func (BlockedPayload) isPayload()             {}
func (ReadinessPayload) isPayload()           {}
func (DeficitPayload) isPayload()             {}
func (BountyPayload) isPayload()              {}
func (ProvisioningFailurePayload) isPayload() {}
func (SafeModePayload) isPayload()            {}
func (ArchivePayload) isPayload()             {}
func (GenericPayload) isPayload()             {}

// Event is the primary unit of communication between the machines, the
// orchestrator and external observers. After emission it must be treated as
// immutable. IDs are UUIDs so concurrent emitters never collide.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Name      EventName `json:"eventName"`
	Payload   Payload   `json:"data,omitempty"`
}

// NewEvent creates an event carrying the given payload, stamped now (UTC).
func NewEvent(name EventName, payload Payload) Event {
	return Event{
		ID:        NewID(),
		Timestamp: time.Now().UTC(),
		Name:      name,
		Payload:   payload,
	}
}

// NewID generates a new collision-free identifier for events.
func NewID() string { return uuid.NewString() }

// Handler consumes a published event. Handlers run synchronously on the
// publisher's goroutine, in subscription order.
type Handler func(Event)

// Channel is the durable, replayable publish/subscribe contract every
// component communicates through.
type Channel interface {
	Publish(name EventName, payload Payload) Event
	Subscribe(name EventName, handler Handler)
	SubscribeWithReplay(name EventName, handler Handler, count int)
}

// Consumer declares the event names a component reacts to so wiring can be
// constructed once at startup instead of ad hoc across modules.
type Consumer interface {
	Consumes() []EventName
	HandleEvent(Event)
}
