// Package simple provides a deterministic offline embedder.
package simple

import (
	"context"
	"strings"
)

// DefaultDimension is used when a non-positive dimension is requested.
const DefaultDimension = 64

// Embedder returns deterministic vectors derived from token hashes, so texts
// sharing words land closer together. It needs no network and is safe for
// concurrent use.
type Embedder struct {
	Dim int
}

// New constructs a simple deterministic embedder.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &Embedder{Dim: dim}
}

// EmbedDocuments embeds documents deterministically.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(docs))
	for i, s := range docs {
		out[i] = embedString(s, e.dim())
	}
	return out, nil
}

// EmbedQuery embeds a query deterministically.
func (e *Embedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return embedString(q, e.dim()), nil
}

// Dimension returns the vector length.
func (e *Embedder) Dimension() int { return e.dim() }

func (e *Embedder) dim() int {
	if e.Dim <= 0 {
		return DefaultDimension
	}
	return e.Dim
}

func embedString(s string, dim int) []float32 {
	v := make([]float32, dim)
	tokens := strings.Fields(strings.ToLower(s))
	if len(tokens) == 0 {
		v[0] = 1
		return v
	}
	for _, token := range tokens {
		h := fnv32(token)
		// Simple deterministic LCG-ish sequence based on the token hash.
		seed := h
		for i := 0; i < 4; i++ {
			seed = seed*1664525 + 1013904223
			v[int(seed%uint32(dim))] += float32(seed%10000)/10000.0 + 0.5
		}
	}
	return v
}

func fnv32(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
