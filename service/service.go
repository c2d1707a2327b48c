// Package service assembles a pipeline from configuration and exposes the
// operations shared by the CLI and the MCP server.
package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/viant/ragpipe/document"
	"github.com/viant/ragpipe/embeddings"
	"github.com/viant/ragpipe/embeddings/ollama"
	"github.com/viant/ragpipe/embeddings/openai"
	"github.com/viant/ragpipe/embeddings/simple"
	"github.com/viant/ragpipe/embeddings/vertexai"
	"github.com/viant/ragpipe/generation"
	genollama "github.com/viant/ragpipe/generation/ollama"
	genopenai "github.com/viant/ragpipe/generation/openai"
	"github.com/viant/ragpipe/pipeline"
	"github.com/viant/ragpipe/vectordb"
	"github.com/viant/ragpipe/vectordb/bolt"
	"github.com/viant/ragpipe/vectordb/mem"
	"github.com/viant/ragpipe/vectordb/postgres"
	"github.com/viant/ragpipe/vectordb/sqlitevec"
)

// Option configures the Service.
type Option func(*Service)

// WithEmbedder overrides the configured embedder.
func WithEmbedder(embedder embeddings.Embedder) Option {
	return func(s *Service) { s.embedder = embedder }
}

// WithStore overrides the configured store. The caller keeps ownership.
func WithStore(store vectordb.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithGenerator overrides the configured generator.
func WithGenerator(generator generation.Generator) Option {
	return func(s *Service) { s.generator = generator }
}

// WithLogf sets the logger passed down to the pipeline and stores.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Service) { s.Logf = fn }
}

// Service exposes ingestion and question answering over a configured
// pipeline.
type Service struct {
	cfg        *Config
	embedder   embeddings.Embedder
	store      vectordb.Store
	generator  generation.Generator
	pipeline   *pipeline.Pipeline
	ownedStore bool
	Logf       func(format string, args ...any)
}

// New creates a Service from cfg; capabilities not supplied by options are
// built from the configuration.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var err error
	if s.embedder == nil {
		if s.embedder, err = newEmbedder(&cfg.Embedder); err != nil {
			return nil, err
		}
		s.embedder = embeddings.NewCached(s.embedder, cfg.Embedder.QueryCacheSize)
	}
	if s.generator == nil {
		if s.generator, err = newGenerator(ctx, &cfg.Generator); err != nil {
			return nil, err
		}
	}
	if s.store == nil {
		if s.store, err = s.newStore(ctx); err != nil {
			return nil, err
		}
		s.ownedStore = true
	}
	s.pipeline, err = pipeline.New(s.embedder, s.store, s.generator, s.pipelineOptions()...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) pipelineOptions() []pipeline.Option {
	cfg := s.cfg
	opts := []pipeline.Option{
		pipeline.WithChunking(cfg.Chunk.Size, cfg.Chunk.OverlapOrDefault()),
		pipeline.WithTopK(cfg.Retrieval.K),
		pipeline.WithLogf(s.Logf),
		pipeline.WithLoader(document.NewLoader(document.WithLoaderLogf(s.Logf))),
	}
	if cfg.Chunk.BatchSize > 0 {
		opts = append(opts, pipeline.WithBatchSize(cfg.Chunk.BatchSize))
	}
	if cfg.Generator.TimeoutSeconds > 0 {
		opts = append(opts, pipeline.WithGenerateTimeout(time.Duration(cfg.Generator.TimeoutSeconds)*time.Second))
	}
	if cfg.Retrieval.EmptyContext == "generate" {
		opts = append(opts, pipeline.WithEmptyContextPolicy(pipeline.GenerateWithMarker))
	}
	return opts
}

func newEmbedder(cfg *EmbedderConfig) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case "simple":
		return simple.New(cfg.Dimension), nil
	case "openai":
		var opts []openai.ClientOption
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.NewEmbedder(os.Getenv(cfg.APIKeyEnv), cfg.Model, opts...), nil
	case "ollama":
		var opts []ollama.Option
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithBaseURL(cfg.BaseURL))
		}
		return ollama.NewEmbedder(cfg.Model, opts...), nil
	case "vertexai":
		var opts []vertexai.Option
		if cfg.Location != "" {
			opts = append(opts, vertexai.WithLocation(cfg.Location))
		}
		return vertexai.NewEmbedder(cfg.ProjectID, cfg.Model, opts...)
	}
	return nil, fmt.Errorf("service: unsupported embedder %q", cfg.Provider)
}

func newGenerator(ctx context.Context, cfg *GeneratorConfig) (generation.Generator, error) {
	switch cfg.Provider {
	case "openai":
		key, err := cfg.ResolveAPIKey(ctx)
		if err != nil {
			return nil, fmt.Errorf("service: generator api key: %w", err)
		}
		var opts []genopenai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, genopenai.WithBaseURL(cfg.BaseURL))
		}
		return genopenai.New(key, cfg.Model, opts...), nil
	case "ollama":
		var opts []genollama.Option
		if cfg.BaseURL != "" {
			opts = append(opts, genollama.WithBaseURL(cfg.BaseURL))
		}
		return genollama.New(cfg.Model, opts...), nil
	}
	return nil, fmt.Errorf("service: unsupported generator %q", cfg.Provider)
}

func (s *Service) newStore(ctx context.Context) (vectordb.Store, error) {
	cfg := &s.cfg.Store
	switch cfg.Driver {
	case "memory":
		return mem.New(), nil
	case "sqlite":
		return sqlitevec.NewStore(ctx,
			sqlitevec.WithDSN(cfg.StoreLocation()),
			sqlitevec.WithCollection(cfg.Collection),
			sqlitevec.WithEmbeddingModel(s.cfg.Embedder.Model),
			sqlitevec.WithIndexSearch(cfg.IndexSearch),
			sqlitevec.WithLogf(s.Logf),
		)
	case "bolt":
		return bolt.NewStore(cfg.StoreLocation(), bolt.WithCollection(cfg.Collection))
	case "postgres":
		return postgres.NewStore(ctx, cfg.DSN, postgres.WithCollection(cfg.Collection))
	}
	return nil, fmt.Errorf("service: unsupported store %q", cfg.Driver)
}

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.cfg }

// Pipeline returns the underlying pipeline.
func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipeline }

// Ingest loads and ingests a document from a local path or URL.
func (s *Service) Ingest(ctx context.Context, uri string) (*pipeline.IngestResult, error) {
	return s.pipeline.IngestSource(ctx, uri)
}

// IngestText ingests raw text; source is recorded as chunk metadata.
func (s *Service) IngestText(ctx context.Context, source, text string) (*pipeline.IngestResult, error) {
	return s.pipeline.Ingest(ctx, document.New(source, text))
}

// Ask answers a question using k chunks; k <= 0 uses the configured value.
func (s *Service) Ask(ctx context.Context, question string, k int) (*pipeline.Answer, error) {
	if k <= 0 {
		k = s.cfg.Retrieval.K
	}
	return s.pipeline.Query(ctx, pipeline.QueryRequest{Text: question, K: k})
}

// Retrieve returns the k nearest chunks without generating; k <= 0 uses the
// configured value.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]vectordb.Match, error) {
	if k <= 0 {
		k = s.cfg.Retrieval.K
	}
	return s.pipeline.Retrieve(ctx, pipeline.QueryRequest{Text: query, K: k})
}

// Embed returns the query embedding of text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.EmbedQuery(ctx, text)
}

// Stats returns the number of stored chunks.
func (s *Service) Stats(ctx context.Context) (int, error) {
	return s.pipeline.Stats(ctx)
}

// Close releases a store opened by the service.
func (s *Service) Close() error {
	if s.ownedStore && s.store != nil {
		return s.store.Close()
	}
	return nil
}
