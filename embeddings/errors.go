package embeddings

import "errors"

var (
	// ErrVectorCount is returned when an embedder returns a different number
	// of vectors than inputs.
	ErrVectorCount = errors.New("embeddings: vector count mismatch")

	// ErrDimension is returned when vectors are empty or of mixed dimension.
	ErrDimension = errors.New("embeddings: inconsistent vector dimension")
)
