// Package pipeline orchestrates ingestion (normalize, chunk, embed, store)
// and question answering (retrieve, prompt, generate).
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/viant/ragpipe/chunker"
	"github.com/viant/ragpipe/document"
	"github.com/viant/ragpipe/embeddings"
	"github.com/viant/ragpipe/generation"
	"github.com/viant/ragpipe/prompt"
	"github.com/viant/ragpipe/retriever"
	"github.com/viant/ragpipe/vectordb"
)

// ErrNotConfigured is returned by New when a capability is missing.
var ErrNotConfigured = errors.New("pipeline: embedder, store and generator are required")

// Pipeline runs both flows over one embedder, store and generator. It holds
// no per-call state and is safe for concurrent use.
type Pipeline struct {
	embedder        embeddings.Embedder
	store           vectordb.Store
	generator       generation.Generator
	retriever       *retriever.Retriever
	loader          *document.Loader
	prompt          prompt.Builder
	chunkSize       int
	chunkOverlap    int
	batchSize       int
	topK            int
	generateTimeout time.Duration
	emptyPolicy     EmptyContextPolicy
	noContextAnswer string
	Logf            func(format string, args ...any)
}

// New creates a Pipeline.
func New(embedder embeddings.Embedder, store vectordb.Store, generator generation.Generator, opts ...Option) (*Pipeline, error) {
	if embedder == nil || store == nil || generator == nil {
		return nil, ErrNotConfigured
	}
	p := &Pipeline{
		embedder:        embedder,
		store:           store,
		generator:       generator,
		chunkSize:       chunker.DefaultSize,
		chunkOverlap:    chunker.DefaultOverlap,
		batchSize:       embeddings.DefaultBatchSize,
		topK:            DefaultTopK,
		noContextAnswer: DefaultNoContextAnswer,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.loader == nil {
		p.loader = document.NewLoader(document.WithLoaderLogf(p.Logf))
	}
	p.retriever = retriever.New(embedder, store)
	return p, nil
}

// Stats returns the number of stored chunks.
func (p *Pipeline) Stats(ctx context.Context) (int, error) {
	return p.store.Count(ctx)
}

// fail builds the Failed(stage, reason) state; context errors override kind.
func (p *Pipeline) fail(flow Flow, stage Stage, kind, err error) error {
	if k, ok := contextKind(err); ok {
		kind = k
	}
	p.logf("pipeline: %s stage=%s state=failed kind=%v err=%v", flow, stage, kind, err)
	return &Error{Flow: flow, Stage: stage, Kind: kind, Err: err}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}
