package artifact

import (
	"sync"

	"github.com/hupe1980/evomesh/core"
)

// InMemoryStore is a trivial in-process ArtifactStore implementation useful
// for tests, examples and single-process runs. It keeps all artifacts in a
// nested map guarded by an RWMutex. Data is copied on save / retrieval to
// avoid accidental external mutation of internal buffers.
//
// Layout: lineage -> artifactID -> raw bytes
type InMemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string]map[string][]byte
}

var _ core.ArtifactStore = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory artifact store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[string]map[string][]byte)}
}

// Save stores (or overwrites) the artifact bytes for the given lineage and id.
// The input slice is copied before storage.
func (a *InMemoryStore) Save(lineage, artifactID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.artifacts[lineage]; !exists {
		a.artifacts[lineage] = make(map[string][]byte)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	a.artifacts[lineage][artifactID] = cp
	return nil
}

// Get returns a copy of the stored artifact bytes or ErrNotFound.
func (a *InMemoryStore) Get(lineage, artifactID string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.artifacts[lineage]
	if !ok {
		return nil, ErrNotFound
	}
	data, ok := m[artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the artifact ids stored for the lineage. The slice is a
// snapshot and safe for caller mutation.
func (a *InMemoryStore) List(lineage string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := []string{}
	for id := range a.artifacts[lineage] {
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes a staged artifact. Deleting a missing artifact is a no-op.
func (a *InMemoryStore) Delete(lineage, artifactID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.artifacts[lineage]; ok {
		delete(m, artifactID)
	}
	return nil
}
