// Package artifact provides stores for generated artifacts awaiting
// externalization. Artifacts are produced by a generator, staged here keyed
// by lineage, and written into the working copy by the externalization
// pipeline.
package artifact
