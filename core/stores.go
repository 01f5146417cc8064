package core

// Artifact is a named generated file produced by an external collaborator
// (the infrastructure-template generator). Its content is opaque to the core;
// only existence and non-emptiness matter.
type Artifact struct {
	Name string
	Data []byte
}

// ArtifactStore stages generated artifacts between the generator and the
// externalization pipeline, keyed by lineage.
type ArtifactStore interface {
	Save(lineage, artifactID string, data []byte) error
	Get(lineage, artifactID string) ([]byte, error)
	List(lineage string) ([]string, error)
	Delete(lineage, artifactID string) error
}

// ArchiveStore keeps terminal organism snapshots and lineage results for
// later inspection.
type ArchiveStore interface {
	ArchiveOrganism(lineage string, state OrganismState) error
	ArchiveResult(result LineageResult) error
	Organism(lineage string) (OrganismState, bool)
	Results() []LineageResult
}
