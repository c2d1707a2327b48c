// Package storetest holds behaviour tests shared by vectordb.Store backends.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/viant/ragpipe/vectordb"
)

// Opener opens a store located in dir. Calls with the same dir must reach
// the same persisted data; in-memory stores may ignore dir.
type Opener func(t *testing.T, dir string) vectordb.Store

func record(id string, index int, text string, vec ...float32) vectordb.Record {
	return vectordb.Record{
		ID:         id,
		DocumentID: "doc-" + id[:1],
		Index:      index,
		Text:       text,
		Vector:     vec,
		Meta:       map[string]string{"source": "test://" + id},
	}
}

func seed() []vectordb.Record {
	return []vectordb.Record{
		record("a#0", 0, "alpha", 1, 0, 0),
		record("b#0", 0, "beta", 0, 1, 0),
		record("c#0", 0, "gamma", 1, 1, 0),
		record("d#0", 0, "delta", 1, 0, 0),
	}
}

func ids(matches []vectordb.Match) string {
	out := ""
	for i, m := range matches {
		if i > 0 {
			out += ","
		}
		out += m.ID
	}
	return out
}

// Run exercises the Store contract. When durable is true the store is
// closed and reopened to verify persistence.
func Run(t *testing.T, open Opener, durable bool) {
	t.Run("EmptyQuery", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		got, err := s.Query(context.Background(), []float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("query empty store: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no matches, got %d", len(got))
		}
		n, err := s.Count(context.Background())
		if err != nil || n != 0 {
			t.Fatalf("expected empty count, got %d (%v)", n, err)
		}
	})

	t.Run("InvalidK", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		if _, err := s.Query(context.Background(), []float32{1}, 0); !errors.Is(err, vectordb.ErrInvalidK) {
			t.Fatalf("expected ErrInvalidK, got %v", err)
		}
	})

	t.Run("OrderAndTies", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		ctx := context.Background()
		if err := s.Upsert(ctx, seed()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		got, err := s.Query(ctx, []float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if ids(got) != "a#0,d#0,c#0" {
			t.Fatalf("unexpected order %s", ids(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Distance < got[i-1].Distance {
				t.Fatalf("distances decrease at %d: %v", i, got)
			}
		}
		if got[0].Text != "alpha" || got[0].DocumentID != "doc-a" || got[0].Meta["source"] != "test://a#0" {
			t.Fatalf("payload not returned: %+v", got[0])
		}
		all, err := s.Query(ctx, []float32{1, 0, 0}, 10)
		if err != nil {
			t.Fatalf("query all: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("expected 4 matches, got %d", len(all))
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		ctx := context.Background()
		if err := s.Upsert(ctx, seed()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := s.Upsert(ctx, []vectordb.Record{record("a#0", 0, "alpha v2", 0, 1, 0)}); err != nil {
			t.Fatalf("replace: %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 4 {
			t.Fatalf("expected 4 entries after replace, got %d", n)
		}
		got, err := s.Query(ctx, []float32{0, 1, 0}, 2)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		// a#0 now ties with b#0 and keeps its original insertion position.
		if ids(got) != "a#0,b#0" {
			t.Fatalf("unexpected order %s", ids(got))
		}
		if got[0].Text != "alpha v2" {
			t.Fatalf("expected replaced text, got %q", got[0].Text)
		}
	})

	t.Run("ReplaceDocument", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		ctx := context.Background()
		batch := append(seed(),
			record("x#0", 0, "x one", 1, 0, 0),
			record("x#1", 1, "x two", 1, 0, 0),
			record("x#2", 2, "x three", 0, 0, 1),
		)
		if err := s.Upsert(ctx, batch); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		err := s.ReplaceDocument(ctx, "doc-x", []vectordb.Record{record("x#0", 0, "x rewritten", 1, 0)})
		if !errors.Is(err, vectordb.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch, got %v", err)
		}
		err = s.ReplaceDocument(ctx, "doc-x", []vectordb.Record{record("a#0", 0, "alpha", 1, 0, 0)})
		if !errors.Is(err, vectordb.ErrForeignRecord) {
			t.Fatalf("expected ErrForeignRecord, got %v", err)
		}
		if err := s.ReplaceDocument(ctx, "", nil); !errors.Is(err, vectordb.ErrEmptyDocumentID) {
			t.Fatalf("expected ErrEmptyDocumentID, got %v", err)
		}
		if n, err := s.Count(ctx); err != nil || n != 7 {
			t.Fatalf("failed replacements must not write, got %d (%v)", n, err)
		}

		if err := s.ReplaceDocument(ctx, "doc-x", []vectordb.Record{record("x#0", 0, "x rewritten", 0, 0, 1)}); err != nil {
			t.Fatalf("replace: %v", err)
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 5 {
			t.Fatalf("expected 5 entries after replace, got %d", n)
		}
		got, err := s.Query(ctx, []float32{0, 0, 1}, 10)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 5 || got[0].ID != "x#0" || got[0].Text != "x rewritten" {
			t.Fatalf("unexpected matches %s", ids(got))
		}
		for _, m := range got {
			if m.ID == "x#1" || m.ID == "x#2" {
				t.Fatalf("stale chunk %s survived the replace", m.ID)
			}
		}
		got, err = s.Query(ctx, []float32{1, 0, 0}, 2)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if ids(got) != "a#0,d#0" {
			t.Fatalf("other documents changed: %s", ids(got))
		}

		if err := s.ReplaceDocument(ctx, "doc-x", nil); err != nil {
			t.Fatalf("replace with nothing: %v", err)
		}
		if n, err := s.Count(ctx); err != nil || n != 4 {
			t.Fatalf("expected 4 entries once doc-x is empty, got %d (%v)", n, err)
		}
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		ctx := context.Background()
		if err := s.Upsert(ctx, seed()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		err := s.Upsert(ctx, []vectordb.Record{record("e#0", 0, "epsilon", 1, 0)})
		if !errors.Is(err, vectordb.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch on upsert, got %v", err)
		}
		if _, err := s.Query(ctx, []float32{1, 0}, 1); !errors.Is(err, vectordb.ErrDimensionMismatch) {
			t.Fatalf("expected ErrDimensionMismatch on query, got %v", err)
		}
	})

	t.Run("BatchAllOrNothing", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		ctx := context.Background()
		batch := []vectordb.Record{
			record("e#0", 0, "epsilon", 1, 0, 0),
			record("e#1", 1, "epsilon 2", 1, 0),
		}
		if err := s.Upsert(ctx, batch); err == nil {
			t.Fatalf("expected mixed-dimension batch to fail")
		}
		n, err := s.Count(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected nothing written, got %d", n)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		s := open(t, t.TempDir())
		defer s.Close()
		ctx := context.Background()
		if err := s.Upsert(ctx, seed()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 4; i++ {
			wg.Add(2)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("w#%d", i)
				errs <- s.Upsert(ctx, []vectordb.Record{record(id, i, id, 0, 0, 1)})
			}(i)
			go func() {
				defer wg.Done()
				_, err := s.Query(ctx, []float32{1, 0, 0}, 2)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent op: %v", err)
			}
		}
		n, err := s.Count(ctx)
		if err != nil || n != 8 {
			t.Fatalf("expected 8 entries, got %d (%v)", n, err)
		}
	})

	if !durable {
		return
	}
	t.Run("Persistence", func(t *testing.T) {
		dir := t.TempDir()
		s := open(t, dir)
		ctx := context.Background()
		if err := s.Upsert(ctx, seed()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		reopened := open(t, dir)
		defer reopened.Close()
		n, err := reopened.Count(ctx)
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 4 {
			t.Fatalf("expected 4 entries after reopen, got %d", n)
		}
		got, err := reopened.Query(ctx, []float32{1, 0, 0}, 2)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if ids(got) != "a#0,d#0" {
			t.Fatalf("unexpected order after reopen %s", ids(got))
		}
		if err := reopened.Upsert(ctx, []vectordb.Record{record("e#0", 0, "epsilon", 1, 0, 0)}); err != nil {
			t.Fatalf("upsert after reopen: %v", err)
		}
		got, err = reopened.Query(ctx, []float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if ids(got) != "a#0,d#0,e#0" {
			t.Fatalf("sequence not continued after reopen: %s", ids(got))
		}
	})
}
