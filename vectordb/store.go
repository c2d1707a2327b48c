// Package vectordb defines the durable chunk index used by ingestion and
// retrieval, and the ranking shared by its backends.
package vectordb

import (
	"context"
	"fmt"
)

// DefaultCollection names the collection used when none is configured.
const DefaultCollection = "documents"

// Record is a chunk as written to a store.
type Record struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"documentId"`
	Index      int               `json:"index"`
	Text       string            `json:"text"`
	Vector     []float32         `json:"-"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Match is a stored chunk returned by a nearest-neighbour query.
// Distance is the cosine distance to the query vector.
type Match struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"documentId"`
	Index      int               `json:"index"`
	Text       string            `json:"text"`
	Distance   float32           `json:"distance"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Store maps chunk identifiers to (vector, text).
//
// Upsert inserts or replaces records by ID in a single all-or-nothing write;
// a replaced record keeps its original insertion position. Query returns at
// most k matches ordered by ascending distance, ties in insertion order, and
// an empty slice for an empty store. ReplaceDocument makes records the
// complete chunk set of one document: in the same write it drops the
// document's stored chunks whose IDs are absent from records. Stores are safe
// for concurrent use.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	ReplaceDocument(ctx context.Context, documentID string, records []Record) error
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Validate checks records before a write and returns their common dimension.
func Validate(records []Record) (int, error) {
	dim := 0
	seen := make(map[string]bool, len(records))
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			return 0, ErrEmptyID
		}
		if seen[r.ID] {
			return 0, &DuplicateIDError{ID: r.ID}
		}
		seen[r.ID] = true
		if len(r.Vector) == 0 {
			return 0, &DimensionError{ID: r.ID, Want: dim, Got: 0}
		}
		if dim == 0 {
			dim = len(r.Vector)
		} else if len(r.Vector) != dim {
			return 0, &DimensionError{ID: r.ID, Want: dim, Got: len(r.Vector)}
		}
	}
	return dim, nil
}

// ValidateDocument checks a ReplaceDocument batch and returns its dimension
// and the set of IDs it keeps.
func ValidateDocument(documentID string, records []Record) (int, map[string]bool, error) {
	if documentID == "" {
		return 0, nil, ErrEmptyDocumentID
	}
	dim, err := Validate(records)
	if err != nil {
		return 0, nil, err
	}
	keep := make(map[string]bool, len(records))
	for _, r := range records {
		if r.DocumentID != documentID {
			return 0, nil, fmt.Errorf("%w: record %s belongs to %q, not %q", ErrForeignRecord, r.ID, r.DocumentID, documentID)
		}
		keep[r.ID] = true
	}
	return dim, keep, nil
}
