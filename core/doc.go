// Package core provides the foundational domain types, interfaces and
// configuration used by EvoMesh. It defines the core abstractions for:
//
//   - Organisms (per-lineage metric state advanced by mutation cycles)
//   - Events (immutable, typed publish/subscribe records)
//   - Validation results (multi-check gate outcomes)
//   - Workflow state (orchestrator milestones + safe mode)
//   - Lineage results (terminal per-lineage outcomes)
//   - DNA configuration blobs and environment switches
//   - Pluggable stores for artifacts and archived lineage state
//
// The package intentionally keeps implementation concerns (the event channel,
// the gate, the externalization pipeline, concrete machines) out of scope,
// exposing small interfaces to enable custom backends and extensions.
package core
