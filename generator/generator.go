package generator

import (
	"context"
	"fmt"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/internal/util"
)

// Generator produces a generated artifact from an organism snapshot.
type Generator interface {
	Generate(ctx context.Context, organism core.OrganismState) (core.Artifact, error)
}

// DefaultTemplate is the deterministic infrastructure template rendered by
// StaticGenerator when none is supplied.
const DefaultTemplate = `# generated for {{.name}}
organism: {{.name}}
generation: {{.generation}}
metrics:
  fitness: {{.fitness}}
  consciousness: {{.consciousness}}
  stability: {{.stability}}
`

// StaticGenerator renders a fixed text/template against the organism metric
// snapshot. Deterministic: the same snapshot always yields the same bytes.
type StaticGenerator struct {
	template string
	filename string
}

var _ Generator = (*StaticGenerator)(nil)

// NewStaticGenerator constructs a StaticGenerator. Empty template or filename
// fall back to DefaultTemplate and "<organism>.yaml".
func NewStaticGenerator(template, filename string) *StaticGenerator {
	if template == "" {
		template = DefaultTemplate
	}
	return &StaticGenerator{template: template, filename: filename}
}

// Generate implements Generator.
func (g *StaticGenerator) Generate(_ context.Context, organism core.OrganismState) (core.Artifact, error) {
	rendered, err := util.RenderTemplate(g.template, map[string]any{
		"name":          organism.Name,
		"generation":    organism.Generation,
		"fitness":       organism.Fitness,
		"consciousness": organism.Consciousness,
		"stability":     organism.Stability,
	})
	if err != nil {
		return core.Artifact{}, fmt.Errorf("failed to render artifact template: %w", err)
	}

	name := g.filename
	if name == "" {
		name = organism.Name + ".yaml"
	}
	return core.Artifact{Name: name, Data: []byte(rendered)}, nil
}

// BuildPrompt normalizes an organism snapshot into the instruction text the
// model-backed generators send. Exported so both subpackages share one shape.
func BuildPrompt(organism core.OrganismState) string {
	return fmt.Sprintf(
		"Produce an infrastructure-as-code template for an autonomous service named %q. "+
			"Size resources for fitness=%.2f, consciousness=%.2f, stability=%.2f (generation %d). "+
			"Respond with the template only, no prose.",
		organism.Name, organism.Fitness, organism.Consciousness, organism.Stability, organism.Generation,
	)
}
