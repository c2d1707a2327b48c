// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/viant/ragpipe/embeddings"
	"github.com/viant/ragpipe/internal/ollamaapi"
)

const (
	defaultModel   = "nomic-embed-text"
	embedEndpoint  = "/api/embed"
	defaultTimeout = 30 * time.Second
)

// Option configures the Embedder.
type Option func(*Embedder)

// WithBaseURL points the embedder at a server other than localhost:11434.
func WithBaseURL(baseURL string) Option {
	return func(e *Embedder) { e.api.SetBaseURL(baseURL) }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Embedder) {
		if client != nil {
			e.api.HTTPClient = client
		}
	}
}

// Embedder sends a whole batch to /api/embed in one request.
type Embedder struct {
	api   *ollamaapi.Client
	model string
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

// NewEmbedder creates an Embedder; an empty model selects nomic-embed-text.
func NewEmbedder(model string, opts ...Option) *Embedder {
	if model == "" {
		model = defaultModel
	}
	e := &Embedder{api: ollamaapi.New(defaultTimeout), model: model}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the embedding model sent with each request.
func (e *Embedder) Model() string { return e.model }

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	vecs, _, err := e.EmbedDocumentsWithUsage(ctx, docs)
	return vecs, err
}

// EmbedDocumentsWithUsage also reports the prompt tokens the server evaluated.
func (e *Embedder) EmbedDocumentsWithUsage(ctx context.Context, docs []string) ([][]float32, int, error) {
	if len(docs) == 0 {
		return nil, 0, nil
	}
	var out embedResponse
	if err := e.api.Post(ctx, embedEndpoint, embedRequest{Model: e.model, Input: docs}, &out); err != nil {
		return nil, 0, err
	}
	if len(out.Embeddings) != len(docs) {
		return nil, 0, fmt.Errorf("ollama: %w: %d vectors for %d inputs", embeddings.ErrVectorCount, len(out.Embeddings), len(docs))
	}
	return out.Embeddings, out.PromptEvalCount, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, _, err := e.EmbedDocumentsWithUsage(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
