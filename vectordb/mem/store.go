// Package mem provides a process-local vectordb.Store.
package mem

import (
	"context"
	"sync"

	"github.com/viant/ragpipe/vectordb"
)

type entry struct {
	record vectordb.Record
	seq    int64
}

// Store keeps records in memory. Contents are lost on Close.
type Store struct {
	entries []*entry
	byID    map[string]*entry
	dim     int
	nextSeq int64
	closed  bool
	sync.RWMutex
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{byID: map[string]*entry{}}
}

// Upsert inserts or replaces records; the batch is validated before any change.
func (s *Store) Upsert(ctx context.Context, records []vectordb.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := vectordb.Validate(records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return vectordb.ErrClosed
	}
	if err := vectordb.CheckDimension(s.dim, dim); err != nil {
		return err
	}
	s.put(records, dim)
	return nil
}

// ReplaceDocument drops the document's records that are not in records and
// upserts the rest under one lock.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, records []vectordb.Record) error {
	dim, keep, err := vectordb.ValidateDocument(documentID, records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()
	if s.closed {
		return vectordb.ErrClosed
	}
	if len(records) > 0 {
		if err := vectordb.CheckDimension(s.dim, dim); err != nil {
			return err
		}
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.record.DocumentID == documentID && !keep[e.record.ID] {
			delete(s.byID, e.record.ID)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(s.entries); i++ {
		s.entries[i] = nil
	}
	s.entries = kept
	if len(records) > 0 {
		s.put(records, dim)
	}
	return nil
}

func (s *Store) put(records []vectordb.Record, dim int) {
	for _, r := range records {
		r = clone(r)
		if e, ok := s.byID[r.ID]; ok {
			e.record = r
			continue
		}
		s.nextSeq++
		e := &entry{record: r, seq: s.nextSeq}
		s.entries = append(s.entries, e)
		s.byID[r.ID] = e
	}
	s.dim = dim
}

// Query ranks every record by cosine distance to vector.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]vectordb.Match, error) {
	if k <= 0 {
		return nil, vectordb.ErrInvalidK
	}
	s.RLock()
	defer s.RUnlock()
	if s.closed {
		return nil, vectordb.ErrClosed
	}
	if len(s.entries) == 0 {
		return []vectordb.Match{}, nil
	}
	if err := vectordb.CheckDimension(s.dim, len(vector)); err != nil {
		return nil, err
	}
	candidates := make([]vectordb.Candidate, 0, len(s.entries))
	for _, e := range s.entries {
		candidates = append(candidates, vectordb.Candidate{
			Match: vectordb.Match{
				ID:         e.record.ID,
				DocumentID: e.record.DocumentID,
				Index:      e.record.Index,
				Text:       e.record.Text,
				Meta:       copyMeta(e.record.Meta),
				Distance:   vectordb.CosineDistance(vector, e.record.Vector),
			},
			Seq: e.seq,
		})
	}
	return vectordb.Rank(candidates, k), nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.RLock()
	defer s.RUnlock()
	if s.closed {
		return 0, vectordb.ErrClosed
	}
	return len(s.entries), nil
}

// Close releases the records.
func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	s.entries = nil
	s.byID = nil
	return nil
}

func clone(r vectordb.Record) vectordb.Record {
	r.Vector = append([]float32(nil), r.Vector...)
	r.Meta = copyMeta(r.Meta)
	return r
}

func copyMeta(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ vectordb.Store = (*Store)(nil)
