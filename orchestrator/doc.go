// Package orchestrator implements the reactive collaboration workflow driven
// entirely by event channel subscriptions: readiness, deficit analysis,
// bounty design, infrastructure provisioning and publication, plus the
// archival follow-up after a completed transcendence.
//
// The orchestrator holds no references to the agents it coordinates; stages
// are decoupled through the channel so any stage can be retried, replaced or
// monitored independently. A validation failure reported upstream switches it
// into safe mode, where it keeps observing but initiates no new externalizing
// actions until reset.
package orchestrator
