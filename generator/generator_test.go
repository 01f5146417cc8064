package generator

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/evomesh/core"
)

func TestStaticGenerator_Deterministic(t *testing.T) {
	g := NewStaticGenerator("", "")
	organism := core.NewOrganismState("alpha", 0.8, 0.95, 0.7)
	organism.Generation = 12

	a, err := g.Generate(context.Background(), organism)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := g.Generate(context.Background(), organism)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if string(a.Data) != string(b.Data) {
		t.Fatal("same snapshot must yield identical bytes")
	}
	if a.Name != "alpha.yaml" {
		t.Fatalf("expected default filename, got %q", a.Name)
	}

	rendered := string(a.Data)
	for _, want := range []string{"organism: alpha", "generation: 12", "consciousness: 0.95"} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("rendered artifact missing %q:\n%s", want, rendered)
		}
	}
}

func TestStaticGenerator_CustomTemplateAndFilename(t *testing.T) {
	g := NewStaticGenerator(`resource "organism" "{{.name}}" {}`, "main.tf")

	a, err := g.Generate(context.Background(), core.NewOrganismState("alpha", 0, 0, 0))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a.Name != "main.tf" {
		t.Fatalf("custom filename lost: %q", a.Name)
	}
	if string(a.Data) != `resource "organism" "alpha" {}` {
		t.Fatalf("unexpected render: %s", a.Data)
	}
}

func TestStaticGenerator_BadTemplate(t *testing.T) {
	g := NewStaticGenerator("{{.name", "")
	if _, err := g.Generate(context.Background(), core.NewOrganismState("alpha", 0, 0, 0)); err == nil {
		t.Fatal("expected error for unparseable template")
	}
}

func TestBuildPrompt(t *testing.T) {
	organism := core.NewOrganismState("alpha", 0.5, 0.9, 0.7)
	organism.Generation = 3

	prompt := BuildPrompt(organism)
	for _, want := range []string{`"alpha"`, "0.90", "generation 3"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, prompt)
		}
	}
}
