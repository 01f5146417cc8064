package archive

import (
	"testing"

	"github.com/hupe1980/evomesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.ArchiveStore = (*InMemoryStore)(nil)

func TestInMemoryStore_OrganismOverwrite(t *testing.T) {
	store := NewInMemoryStore()

	if _, ok := store.Organism("alpha"); ok {
		t.Fatal("empty store reported an organism")
	}

	if err := store.ArchiveOrganism("alpha", core.NewOrganismState("alpha", 0.1, 0.2, 0.3)); err != nil {
		t.Fatalf("archive: %v", err)
	}
	updated := core.NewOrganismState("alpha", 0.9, 0.95, 0.8)
	updated.Transcended = true
	if err := store.ArchiveOrganism("alpha", updated); err != nil {
		t.Fatalf("archive: %v", err)
	}

	state, ok := store.Organism("alpha")
	if !ok || !state.Transcended || state.Fitness != 0.9 {
		t.Fatalf("expected latest snapshot, got %+v ok=%v", state, ok)
	}
}

func TestInMemoryStore_ResultsCopy(t *testing.T) {
	store := NewInMemoryStore()
	if err := store.ArchiveResult(core.LineageResult{Organism: "alpha", Success: true, Outcome: core.OutcomeTranscended}); err != nil {
		t.Fatal(err)
	}
	if err := store.ArchiveResult(core.LineageResult{Organism: "beta", Outcome: core.OutcomeTimeout}); err != nil {
		t.Fatal(err)
	}

	results := store.Results()
	if len(results) != 2 || results[0].Organism != "alpha" {
		t.Fatalf("unexpected results: %+v", results)
	}

	results[0].Organism = "mutated"
	if store.Results()[0].Organism != "alpha" {
		t.Fatal("returned slice aliases internal storage")
	}
}
