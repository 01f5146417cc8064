// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer EvoMeshLogger with contextual
// helpers (lineage, run, component) and domain specific logging helpers for
// validation gate checks, externalization attempts and lineage runs.
package logging
