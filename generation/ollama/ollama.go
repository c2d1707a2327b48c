// Package ollama generates answers with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/viant/ragpipe/generation"
	"github.com/viant/ragpipe/internal/ollamaapi"
)

const (
	defaultModel     = "llama3.2"
	generateEndpoint = "/api/generate"
	defaultTimeout   = 2 * time.Minute
)

// Option configures the Generator.
type Option func(*Generator)

// WithBaseURL points the generator at a server other than localhost:11434.
func WithBaseURL(baseURL string) Option {
	return func(g *Generator) { g.api.SetBaseURL(baseURL) }
}

// WithHTTPClient sets the HTTP client; its timeout bounds one generation.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Generator) {
		if client != nil {
			g.api.HTTPClient = client
		}
	}
}

// Generator calls /api/generate without streaming.
type Generator struct {
	api   *ollamaapi.Client
	model string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// New creates a Generator; an empty model selects llama3.2.
func New(model string, opts ...Option) *Generator {
	if model == "" {
		model = defaultModel
	}
	g := &Generator{api: ollamaapi.New(defaultTimeout), model: model}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the model response for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	if err := g.api.Post(ctx, generateEndpoint, generateRequest{Model: g.model, Prompt: prompt}, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("ollama: %w", generation.ErrEmptyResponse)
	}
	return out.Response, nil
}

var _ generation.Generator = (*Generator)(nil)
