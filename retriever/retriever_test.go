package retriever

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/viant/ragpipe/embeddings/simple"
	"github.com/viant/ragpipe/vectordb"
	"github.com/viant/ragpipe/vectordb/mem"
)

type failingEmbedder struct{}

func (failingEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}

func (failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func seeded(t *testing.T, texts ...string) (*simple.Embedder, vectordb.Store) {
	t.Helper()
	emb := simple.New(32)
	store := mem.New()
	vecs, err := emb.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	records := make([]vectordb.Record, len(texts))
	for i, text := range texts {
		records[i] = vectordb.Record{ID: fmt.Sprintf("doc#%d", i), DocumentID: "doc", Index: i, Text: text, Vector: vecs[i]}
	}
	if err := store.Upsert(context.Background(), records); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return emb, store
}

func TestRetrieve(t *testing.T) {
	emb, store := seeded(t, "go channels and goroutines", "baking sourdough bread", "goroutines share memory by communicating", "tomato soup recipe")
	r := New(emb, store)
	for _, k := range []int{1, 2, 3, 10} {
		got, err := r.Retrieve(context.Background(), "goroutines", k)
		if err != nil {
			t.Fatalf("retrieve k=%d: %v", k, err)
		}
		want := k
		if want > 4 {
			want = 4
		}
		if len(got) != want {
			t.Fatalf("k=%d: expected %d matches, got %d", k, want, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Distance < got[i-1].Distance {
				t.Fatalf("k=%d: distance decreases at %d", k, i)
			}
		}
	}
}

func TestRetrieve_InvalidK(t *testing.T) {
	r := New(failingEmbedder{}, mem.New())
	for _, k := range []int{0, -1} {
		if _, err := r.Retrieve(context.Background(), "q", k); !errors.Is(err, vectordb.ErrInvalidK) {
			t.Fatalf("k=%d: expected ErrInvalidK, got %v", k, err)
		}
	}
}

func TestRetrieve_EmptyStore(t *testing.T) {
	r := New(simple.New(8), mem.New())
	got, err := r.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestRetrieve_Failures(t *testing.T) {
	_, err := New(failingEmbedder{}, mem.New()).Retrieve(context.Background(), "q", 3)
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	_, store := seeded(t, "one", "two")
	_, err = New(simple.New(16), store).Retrieve(context.Background(), "q", 3)
	if !errors.Is(err, ErrStore) || !errors.Is(err, vectordb.ErrDimensionMismatch) {
		t.Fatalf("expected ErrStore wrapping dimension mismatch, got %v", err)
	}
}

func TestRetrieve_Canceled(t *testing.T) {
	emb, store := seeded(t, "one")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(emb, store).Retrieve(ctx, "one", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
