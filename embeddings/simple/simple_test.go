package simple

import (
	"context"
	"testing"
)

func TestEmbedder_Deterministic(t *testing.T) {
	emb := New(16)
	ctx := context.Background()
	docs, err := emb.EmbedDocuments(ctx, []string{"hello world", "other text"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	q, err := emb.EmbedQuery(ctx, "hello world")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if len(q) != 16 || len(docs[0]) != 16 || len(docs[1]) != 16 {
		t.Fatalf("unexpected dimension")
	}
	for i := range q {
		if q[i] != docs[0][i] {
			t.Fatalf("query and document embedding differ at %d", i)
		}
	}
}

func TestEmbedder_DefaultDimension(t *testing.T) {
	emb := New(0)
	if emb.Dimension() != DefaultDimension {
		t.Fatalf("expected %d, got %d", DefaultDimension, emb.Dimension())
	}
	v, err := emb.EmbedQuery(context.Background(), "")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(v) != DefaultDimension {
		t.Fatalf("unexpected dimension %d", len(v))
	}
}
