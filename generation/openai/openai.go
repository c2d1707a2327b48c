// Package openai generates answers with the OpenAI Chat Completions API.
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/viant/ragpipe/generation"
)

const defaultModel = "gpt-4o-mini"

// Option configures the generator.
type Option func(*config)

type config struct {
	baseURL string
	opts    []option.RequestOption
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithRequestOption passes a raw openai-go request option.
func WithRequestOption(opt option.RequestOption) Option {
	return func(c *config) { c.opts = append(c.opts, opt) }
}

// Generator calls chat completions with a single user message.
type Generator struct {
	client openai.Client
	model  string
}

// New creates a Generator. An empty apiKey falls back to OPENAI_API_KEY.
// Requests are never retried.
func New(apiKey, model string, opts ...Option) *Generator {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(cfg.baseURL, "/")+"/"))
	}
	reqOpts = append(reqOpts, cfg.opts...)
	return &Generator{client: openai.NewClient(reqOpts...), model: model}
}

// Generate returns the content of the first choice.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai: %w", generation.ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

var _ generation.Generator = (*Generator)(nil)
