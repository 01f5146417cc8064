// Package archive persists terminal organism snapshots and lineage results.
// The orchestrator archives state when a transcendence completes; callers can
// inspect archived outcomes after a run settles.
package archive
