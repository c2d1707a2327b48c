package embeddings

import (
	"context"
	"fmt"
)

// DefaultBatchSize is the number of texts sent per EmbedDocuments call.
const DefaultBatchSize = 64

// EmbedBatches embeds texts in batches of batchSize and returns all vectors
// or none. Every batch is validated before the next one is requested.
func EmbedBatches(ctx context.Context, emb Embedder, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	dim := 0
	for i := 0; i < len(texts); i += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := emb.EmbedDocuments(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		d, err := Validate(vecs, end-i)
		if err != nil {
			return nil, err
		}
		if dim != 0 && d != dim {
			return nil, fmt.Errorf("%w: batch at %d has dimension %d, expected %d", ErrDimension, i, d, dim)
		}
		dim = d
		out = append(out, vecs...)
	}
	return out, nil
}

// Validate checks that vecs holds expected vectors of one non-zero dimension
// and returns that dimension.
func Validate(vecs [][]float32, expected int) (int, error) {
	if len(vecs) != expected {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d inputs", ErrVectorCount, len(vecs), expected)
	}
	if expected == 0 {
		return 0, nil
	}
	dim := len(vecs[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty vector at 0", ErrDimension)
	}
	for i, v := range vecs {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrDimension, i, len(v), dim)
		}
	}
	return dim, nil
}
