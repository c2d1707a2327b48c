// Package retriever finds the stored chunks nearest to a query.
package retriever

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/ragpipe/embeddings"
	"github.com/viant/ragpipe/vectordb"
)

var (
	// ErrEmbedding marks a failure to embed the query.
	ErrEmbedding = errors.New("retriever: query embedding failed")

	// ErrStore marks a failure of the store lookup.
	ErrStore = errors.New("retriever: store query failed")
)

// Retriever embeds a query and delegates the nearest-neighbour lookup to a
// store. It adds no threshold and no reranking.
type Retriever struct {
	embedder embeddings.Embedder
	store    vectordb.Store
}

// New creates a Retriever.
func New(embedder embeddings.Embedder, store vectordb.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns at most k matches in ascending distance.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]vectordb.Match, error) {
	if k <= 0 {
		return nil, vectordb.ErrInvalidK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, embeddings.ErrDimension)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return matches, nil
}
