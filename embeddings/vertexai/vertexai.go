// Package vertexai embeds text with Vertex AI text embedding models.
package vertexai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultLocation   = "us-central1"
	defaultModel      = "text-embedding-004"
	defaultHTTPTO     = 30 * time.Second
	defaultScopeCloud = "https://www.googleapis.com/auth/cloud-platform"
)

// Option configures the Embedder.
type Option func(*Embedder)

// WithLocation sets the Vertex AI region.
func WithLocation(location string) Option {
	return func(e *Embedder) {
		if location != "" {
			e.location = location
		}
	}
}

// WithScopes sets OAuth scopes used for the default token source.
func WithScopes(scopes ...string) Option {
	return func(e *Embedder) {
		e.scopes = append(e.scopes, scopes...)
	}
}

// WithTokenSource sets an explicit token source instead of application default credentials.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(e *Embedder) { e.tokenSource = ts }
}

// WithEndpoint overrides the predict endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(e *Embedder) { e.endpoint = endpoint }
}

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	Content string `json:"content"`
}

type predictResponse struct {
	Predictions []struct {
		Embeddings struct {
			Values []float32 `json:"values"`
		} `json:"embeddings"`
	} `json:"predictions"`
}

// Embedder calls the Vertex AI predict endpoint. Credentials are resolved
// lazily on first use and reused afterwards.
type Embedder struct {
	projectID string
	model     string
	location  string
	scopes    []string
	endpoint  string

	httpClient *http.Client

	mu          sync.Mutex
	tokenSource oauth2.TokenSource
}

// NewEmbedder creates a Vertex AI embedder for projectID.
func NewEmbedder(projectID, model string, opts ...Option) (*Embedder, error) {
	if projectID == "" {
		return nil, fmt.Errorf("vertexai project id is required")
	}
	e := &Embedder{
		projectID:  projectID,
		model:      model,
		location:   defaultLocation,
		httpClient: &http.Client{Timeout: defaultHTTPTO},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.model == "" {
		e.model = defaultModel
	}
	if len(e.scopes) == 0 {
		e.scopes = []string{defaultScopeCloud}
	}
	if e.endpoint == "" {
		e.endpoint = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:predict",
			e.location, e.projectID, e.location, e.model)
	}
	return e, nil
}

func (e *Embedder) token(ctx context.Context) (*oauth2.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tokenSource == nil {
		ts, err := google.DefaultTokenSource(ctx, e.scopes...)
		if err != nil {
			return nil, fmt.Errorf("vertexai token source: %w", err)
		}
		e.tokenSource = ts
	}
	tok, err := e.tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("vertexai token: %w", err)
	}
	return tok, nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no input texts provided")
	}
	instances := make([]predictInstance, 0, len(docs))
	for _, t := range docs {
		instances = append(instances, predictInstance{Content: t})
	}
	body, err := json.Marshal(predictRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	tok, err := e.token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok.SetAuthHeader(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vertexai API error: %s", strings.TrimSpace(string(body)))
	}
	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Predictions) != len(docs) {
		return nil, fmt.Errorf("vertexai returned %d embeddings for %d inputs", len(out.Predictions), len(docs))
	}
	vecs := make([][]float32, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		vecs = append(vecs, p.Embeddings.Values)
	}
	return vecs, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
