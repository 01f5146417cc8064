// Package openai provides an artifact generator backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/evomesh/core"
	"github.com/hupe1980/evomesh/generator"
)

// Options configures the OpenAI generator.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	Suffix              string
}

// Generator asks a chat model to author the infrastructure template for an
// organism snapshot.
type Generator struct {
	client *openai.Client
	opts   Options
}

var _ generator.Generator = (*Generator)(nil)

// New creates a new OpenAI-backed generator using the official client.
func New(optFns ...func(o *Options)) *Generator {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a generator from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Generator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 4096,
		Suffix:              ".yaml",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Generator{client: client, opts: opts}
}

// Generate implements generator.Generator with a single non-streaming call.
func (g *Generator) Generate(ctx context.Context, organism core.OrganismState) (core.Artifact, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               g.opts.Model,
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(generator.BuildPrompt(organism)),
		},
	})
	if err != nil {
		return core.Artifact{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return core.Artifact{}, fmt.Errorf("openai returned an empty template")
	}

	return core.Artifact{Name: organism.Name + g.opts.Suffix, Data: []byte(resp.Choices[0].Message.Content)}, nil
}
