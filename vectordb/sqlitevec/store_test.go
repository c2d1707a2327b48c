package sqlitevec

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/viant/ragpipe/vectordb"
	"github.com/viant/ragpipe/vectordb/storetest"
)

func openAt(t *testing.T, dir string) vectordb.Store {
	t.Helper()
	s, err := NewStore(context.Background(), WithDSN(filepath.Join(dir, "rag.sqlite")))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, openAt, true)
}

func TestStoreIndexSearch(t *testing.T) {
	storetest.Run(t, func(t *testing.T, dir string) vectordb.Store {
		t.Helper()
		s, err := NewStore(context.Background(), WithDSN(filepath.Join(dir, "rag.sqlite")), WithIndexSearch(true))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		return s
	}, true)
}

func TestStoreMatchQuery(t *testing.T) {
	ctx := context.Background()
	var fallbacks []string
	s, err := NewStore(ctx, WithDSN(filepath.Join(t.TempDir(), "rag.sqlite")), WithIndexSearch(true),
		WithLogf(func(format string, args ...any) { fallbacks = append(fallbacks, fmt.Sprintf(format, args...)) }))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if !s.indexSearch {
		t.Skip("vec module unavailable")
	}
	records := []vectordb.Record{
		{ID: "d1#0", DocumentID: "d1", Text: "one", Vector: []float32{1, 0}},
		{ID: "d1#1", DocumentID: "d1", Index: 1, Text: "two", Vector: []float32{0, 1}},
		{ID: "d2#0", DocumentID: "d2", Text: "three", Vector: []float32{1, 0}},
	}
	if err := s.Upsert(ctx, records); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.matchQuery(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("match query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "d1#0" || got[1].ID != "d2#0" || got[0].Distance > 1e-6 {
		t.Fatalf("unexpected matches %+v", got)
	}

	// archived rows stay in the index but must not be returned
	if err := s.ReplaceDocument(ctx, "d1", []vectordb.Record{{ID: "d1#1", DocumentID: "d1", Index: 1, Text: "two", Vector: []float32{0, 1}}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err = s.Query(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 || got[0].ID != "d2#0" || got[1].ID != "d1#1" {
		t.Fatalf("unexpected matches after replace %+v", got)
	}
	if len(fallbacks) != 0 {
		t.Fatalf("index search fell back to a scan: %v", fallbacks)
	}
}

func TestStoreCollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "rag.sqlite")
	a, err := NewStore(ctx, WithDSN(dsn), WithCollection("a"))
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	defer a.Close()
	b, err := NewStore(ctx, WithDSN(dsn), WithCollection("b"))
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	defer b.Close()
	if err := a.Upsert(ctx, []vectordb.Record{{ID: "x#0", DocumentID: "x", Text: "x", Vector: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n, _ := b.Count(ctx); n != 0 {
		t.Fatalf("expected empty collection b, got %d", n)
	}
	// b has no dimension yet, so a different one is accepted
	if err := b.Upsert(ctx, []vectordb.Record{{ID: "y#0", DocumentID: "y", Text: "y", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, WithDSN(filepath.Join(t.TempDir(), "rag.sqlite")))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	records := []vectordb.Record{
		{ID: "d1#0", DocumentID: "d1", Text: "one", Vector: []float32{1, 0}},
		{ID: "d1#1", DocumentID: "d1", Index: 1, Text: "two", Vector: []float32{0, 1}},
		{ID: "d2#0", DocumentID: "d2", Text: "three", Vector: []float32{1, 1}},
	}
	if err := s.Upsert(ctx, records); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	n, err := s.Remove(ctx, "d1")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 removed, got %d (%v)", n, err)
	}
	got, err := s.Query(ctx, []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != "d2#0" {
		t.Fatalf("unexpected matches %+v", got)
	}
}

func TestPrepareDSN(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	dsn, err := prepareDSN(filepath.Join(dir, "rag.sqlite"))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !strings.Contains(dsn, "_pragma=journal_mode(WAL)") || !strings.Contains(dsn, "_pragma=busy_timeout(5000)") {
		t.Fatalf("pragmas missing: %s", dsn)
	}
	if got, _ := prepareDSN(":memory:"); got != ":memory:" {
		t.Fatalf("memory dsn changed: %s", got)
	}
	custom := "x.sqlite?_pragma=busy_timeout(10)"
	got, _ := prepareDSN(custom)
	if strings.Count(got, "busy_timeout") != 1 {
		t.Fatalf("busy_timeout duplicated: %s", got)
	}
}
