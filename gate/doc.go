// Package gate implements the multi-check validation probe guarding every
// operation that externalizes state (commits, pushes, pipeline triggers).
//
// Checks are split into fatal structural problems (target missing, not a
// version-controlled working copy) and advisory conditions (dirty tree, no
// remote, no network, stale locks, missing artifacts). Only structural
// problems block externalization; advisory conditions surface as warnings so
// transient situations never wedge the pipeline. ValidateWithRetry adds
// bounded exponential backoff for callers that want to wait out transient
// failures.
package gate
