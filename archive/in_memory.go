package archive

import (
	"sync"

	"github.com/hupe1980/evomesh/core"
)

// InMemoryStore is a volatile ArchiveStore implementation storing snapshots
// in process local maps. It is safe for concurrent access and best suited for
// tests or single-process runs. Returned values are copies to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu        sync.RWMutex
	organisms map[string]core.OrganismState
	results   []core.LineageResult
}

var _ core.ArchiveStore = (*InMemoryStore)(nil)

// NewInMemoryStore constructs an empty in-memory archive store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{organisms: make(map[string]core.OrganismState)}
}

// ArchiveOrganism stores the terminal snapshot for a lineage, overwriting any
// previous snapshot for the same lineage.
func (s *InMemoryStore) ArchiveOrganism(lineage string, state core.OrganismState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organisms[lineage] = state
	return nil
}

// ArchiveResult appends a settled lineage result.
func (s *InMemoryStore) ArchiveResult(result core.LineageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

// Organism returns the archived snapshot for a lineage, if any.
func (s *InMemoryStore) Organism(lineage string) (core.OrganismState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.organisms[lineage]
	return state, ok
}

// Results returns a copy of all archived lineage results.
func (s *InMemoryStore) Results() []core.LineageResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]core.LineageResult, len(s.results))
	copy(cp, s.results)
	return cp
}
