// Package openai embeds text with the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/viant/ragpipe/embeddings"
)

const (
	defaultModel   = openai.EmbeddingModelTextEmbedding3Small
	defaultTimeout = 30 * time.Second
)

// ClientOption configures the Embedder.
type ClientOption func(*config)

type config struct {
	baseURL    string
	httpClient *http.Client
	opts       []option.RequestOption
}

// WithBaseURL overrides the API base URL (e.g. an OpenAI compatible gateway).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *config) { c.baseURL = strings.TrimSpace(baseURL) }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *config) { c.httpClient = client }
}

// WithRequestOption passes a raw openai-go request option.
func WithRequestOption(opt option.RequestOption) ClientOption {
	return func(c *config) { c.opts = append(c.opts, opt) }
}

// Embedder sends each batch as one embeddings request.
type Embedder struct {
	client openai.Client
	model  openai.EmbeddingModel
}

// NewEmbedder creates an Embedder. An empty apiKey falls back to
// OPENAI_API_KEY. Requests are never retried.
func NewEmbedder(apiKey, model string, opts ...ClientOption) *Embedder {
	cfg := &config{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(cfg)
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if cfg.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(cfg.baseURL, "/")+"/"))
	}
	reqOpts = append(reqOpts, cfg.opts...)
	e := &Embedder{client: openai.NewClient(reqOpts...), model: defaultModel}
	if model != "" {
		e.model = openai.EmbeddingModel(model)
	}
	return e
}

// Model returns the embedding model sent with each request.
func (e *Embedder) Model() string { return string(e.model) }

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	vecs, _, err := e.EmbedDocumentsWithUsage(ctx, docs)
	return vecs, err
}

// EmbedDocumentsWithUsage also reports the total tokens billed. Vectors are
// placed by the index the API returns, not by reply order.
func (e *Embedder) EmbedDocumentsWithUsage(ctx context.Context, docs []string) ([][]float32, int, error) {
	if len(docs) == 0 {
		return nil, 0, nil
	}
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: docs},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("openai: embeddings: %w", err)
	}
	if len(resp.Data) != len(docs) {
		return nil, 0, fmt.Errorf("openai: %w: %d vectors for %d inputs", embeddings.ErrVectorCount, len(resp.Data), len(docs))
	}
	out := make([][]float32, len(docs))
	for _, item := range resp.Data {
		i := int(item.Index)
		if i < 0 || i >= len(out) || out[i] != nil {
			return nil, 0, fmt.Errorf("openai: %w: unexpected index %d", embeddings.ErrVectorCount, item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		for j, f := range item.Embedding {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, int(resp.Usage.TotalTokens), nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, _, err := e.EmbedDocumentsWithUsage(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
