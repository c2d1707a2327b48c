// Package bolt implements vectordb.Store on a bbolt file, one bucket per
// collection, with bintly-encoded records.
package bolt

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/viant/ragpipe/vectordb"
	"go.etcd.io/bbolt"
)

var bucketMeta = []byte("ragpipe.meta")

// Store is a bbolt backed vectordb.Store.
type Store struct {
	db         *bbolt.DB
	path       string
	collection []byte
	timeout    time.Duration
}

// Option configures the store.
type Option func(*Store)

// WithCollection selects the bucket records are written to.
func WithCollection(name string) Option {
	return func(s *Store) { s.collection = []byte(name) }
}

// WithTimeout bounds waiting for the file lock.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// NewStore opens or creates the bbolt file at path.
func NewStore(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, collection: []byte(vectordb.DefaultCollection), timeout: 5 * time.Second}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.collection) == 0 {
		s.collection = []byte(vectordb.DefaultCollection)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bolt: create %s: %w", dir, err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(s.collection)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// Upsert writes records in one bbolt transaction.
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
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.put(tx, records, dim)
	})
}

// ReplaceDocument deletes the document's records that are not in records and
// upserts the rest in the same bbolt transaction.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, records []vectordb.Record) error {
	dim, keep, err := vectordb.ValidateDocument(documentID, records)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if len(records) > 0 {
			storeDim := dimension(tx.Bucket(bucketMeta), s.collection)
			if err := vectordb.CheckDimension(storeDim, dim); err != nil {
				return err
			}
		}
		b := tx.Bucket(s.collection)
		var stale [][]byte
		err := b.ForEach(func(key, data []byte) error {
			if keep[string(key)] {
				return nil
			}
			e, err := decode(data)
			if err != nil {
				return fmt.Errorf("bolt: decode %s: %w", key, err)
			}
			if e.Record.DocumentID == documentID {
				stale = append(stale, append([]byte(nil), key...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		if len(records) == 0 {
			return nil
		}
		return s.put(tx, records, dim)
	})
}

func (s *Store) put(tx *bbolt.Tx, records []vectordb.Record, dim int) error {
	meta := tx.Bucket(bucketMeta)
	storeDim := dimension(meta, s.collection)
	if err := vectordb.CheckDimension(storeDim, dim); err != nil {
		return err
	}
	if storeDim == 0 {
		if err := meta.Put(s.collection, encodeDim(dim)); err != nil {
			return err
		}
	}
	b := tx.Bucket(s.collection)
	for _, r := range records {
		e := &entry{Record: r}
		if prev := b.Get([]byte(r.ID)); prev != nil {
			old, err := decode(prev)
			if err != nil {
				return fmt.Errorf("bolt: decode %s: %w", r.ID, err)
			}
			e.Seq = old.Seq
		} else {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			e.Seq = int(seq)
		}
		data, err := encode(e)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(r.ID), data); err != nil {
			return err
		}
	}
	return nil
}

// Query scans the collection and ranks by cosine distance.
func (s *Store) Query(ctx context.Context, v []float32, k int) ([]vectordb.Match, error) {
	if k <= 0 {
		return nil, vectordb.ErrInvalidK
	}
	var out []vectordb.Match
	err := s.db.View(func(tx *bbolt.Tx) error {
		storeDim := dimension(tx.Bucket(bucketMeta), s.collection)
		if storeDim == 0 {
			out = []vectordb.Match{}
			return nil
		}
		if err := vectordb.CheckDimension(storeDim, len(v)); err != nil {
			return err
		}
		b := tx.Bucket(s.collection)
		candidates := make([]vectordb.Candidate, 0, b.Stats().KeyN)
		err := b.ForEach(func(key, data []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := decode(data)
			if err != nil {
				return fmt.Errorf("bolt: decode %s: %w", key, err)
			}
			r := e.Record
			candidates = append(candidates, vectordb.Candidate{
				Match: vectordb.Match{
					ID:         r.ID,
					DocumentID: r.DocumentID,
					Index:      r.Index,
					Text:       r.Text,
					Meta:       r.Meta,
					Distance:   vectordb.CosineDistance(v, r.Vector),
				},
				Seq: int64(e.Seq),
			})
			return nil
		})
		if err != nil {
			return err
		}
		out = vectordb.Rank(candidates, k)
		return nil
	})
	return out, err
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(s.collection).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

func dimension(meta *bbolt.Bucket, collection []byte) int {
	data := meta.Get(collection)
	if len(data) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(data))
}

func encodeDim(dim int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(dim))
	return buf
}

var _ vectordb.Store = (*Store)(nil)
