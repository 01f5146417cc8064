// Package anthropic provides an artifact generator backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/generator"
)

// Options configures the Anthropic generator (model id, max tokens, API key,
// output filename suffix).
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
	Suffix    string
}

// Generator asks a Claude model to author the infrastructure template for an
// organism snapshot.
type Generator struct {
	client *anthropic.Client
	opts   Options
}

var _ generator.Generator = (*Generator)(nil)

// New creates a new Anthropic-backed generator using the official client.
func New(optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
		Suffix:    ".yaml",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Generator{client: &client, opts: opts}
}

// NewFromClient creates a generator from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:     anthropic.ModelClaude3_5Sonnet20241022,
		MaxTokens: 4096,
		Suffix:    ".yaml",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Generator{client: client, opts: opts}
}

// Generate implements generator.Generator with a single non-streaming call.
func (g *Generator) Generate(ctx context.Context, organism core.OrganismState) (core.Artifact, error) {
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.opts.Model,
		MaxTokens: g.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(generator.BuildPrompt(organism))),
		},
	})
	if err != nil {
		return core.Artifact{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}
	if text == "" {
		return core.Artifact{}, fmt.Errorf("anthropic returned an empty template")
	}

	return core.Artifact{Name: organism.Name + g.opts.Suffix, Data: []byte(text)}, nil
}
