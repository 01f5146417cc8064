// Package pipeline implements safety-gated externalization: staging,
// committing and pushing generated artifacts from a version-controlled
// working copy, plus read-mostly helpers for an external build pipeline.
//
// Expected failure modes (nothing to externalize, zero diff, validation
// failure, missing production credential, unresolved conflicts) are encoded
// in the returned Result rather than raised as errors; only programmer errors
// propagate. SmartExternalize layers remote synchronization and best-effort
// conflict auto-resolution, scoped strictly to recognized generated-artifact
// files, over bounded retries.
package pipeline
