// Package embeddings defines the text embedding capability shared by
// ingestion and retrieval.
package embeddings

import "context"

// Embedder computes fixed-dimension vectors for documents and queries.
// Implementations return one vector per input in input order, or an error
// and no vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
