// Package postgres implements vectordb.Store on PostgreSQL with the pgvector
// extension.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/viant/ragpipe/vectordb"
)

const defaultTable = "rag_chunks"

// Store keeps chunks in one table keyed by (collection, id); seq is a
// bigserial assigned on first insert.
type Store struct {
	db            *sql.DB
	table         string
	collection    string
	openedLocally bool
}

// Option configures the store.
type Option func(*Store)

// WithDB sets an existing *sql.DB to use.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithTable overrides the chunk table name.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithCollection selects the collection rows are written to.
func WithCollection(name string) Option {
	return func(s *Store) { s.collection = name }
}

// NewStore connects with dsn (unless WithDB is given) and ensures the schema.
func NewStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{table: defaultTable, collection: vectordb.DefaultCollection}
	for _, opt := range opts {
		opt(s)
	}
	if s.db == nil {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres: open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", err)
		}
		s.db = db
		s.openedLocally = true
	}
	if err := s.ensureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			collection  TEXT NOT NULL,
			id          TEXT NOT NULL,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content     TEXT NOT NULL,
			meta        TEXT,
			embedding   vector NOT NULL,
			seq         BIGSERIAL,
			PRIMARY KEY (collection, id)
		)`, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}

// Upsert writes records in one transaction.
func (s *Store) Upsert(ctx context.Context, records []vectordb.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := vectordb.Validate(records)
	if err != nil {
		return err
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.upsertTx(ctx, tx, records, dim); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceDocument deletes the document's rows whose IDs are not in records
// and upserts the rest in one transaction.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, records []vectordb.Record) error {
	dim, _, err := vectordb.ValidateDocument(documentID, records)
	if err != nil {
		return err
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND document_id = $2 AND NOT (id = ANY($3))`, s.table),
		s.collection, documentID, pq.Array(ids)); err != nil {
		return fmt.Errorf("postgres: replace %s: %w", documentID, err)
	}
	if len(records) > 0 {
		if err := s.upsertTx(ctx, tx, records, dim); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// begin opens a transaction holding the collection's advisory lock, which
// serializes writers.
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.table+"/"+s.collection); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	return tx, nil
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, records []vectordb.Record, dim int) error {
	storeDim, err := s.dimension(ctx, tx)
	if err != nil {
		return err
	}
	if err := vectordb.CheckDimension(storeDim, dim); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(collection, id, document_id, chunk_index, content, meta, embedding)
VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (collection, id) DO UPDATE SET
	document_id=EXCLUDED.document_id,
	chunk_index=EXCLUDED.chunk_index,
	content=EXCLUDED.content,
	meta=EXCLUDED.meta,
	embedding=EXCLUDED.embedding`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		meta, err := json.Marshal(r.Meta)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, s.collection, r.ID, r.DocumentID, r.Index, r.Text, string(meta), pgvector.NewVector(r.Vector)); err != nil {
			return fmt.Errorf("postgres: upsert %s: %w", r.ID, err)
		}
	}
	return nil
}

// Query orders by the pgvector cosine distance operator, ties by seq.
func (s *Store) Query(ctx context.Context, v []float32, k int) ([]vectordb.Match, error) {
	if k <= 0 {
		return nil, vectordb.ErrInvalidK
	}
	storeDim, err := s.dimension(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if storeDim == 0 {
		return []vectordb.Match{}, nil
	}
	if err := vectordb.CheckDimension(storeDim, len(v)); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, document_id, chunk_index, content, meta, embedding <=> $2 AS distance
FROM %s
WHERE collection = $1
ORDER BY distance, seq
LIMIT $3`, s.table), s.collection, pgvector.NewVector(v), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]vectordb.Match, 0, k)
	for rows.Next() {
		var (
			m        vectordb.Match
			meta     sql.NullString
			distance sql.NullFloat64
		)
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Index, &m.Text, &meta, &distance); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &m.Meta); err != nil {
				return nil, fmt.Errorf("postgres: meta of %s: %w", m.ID, err)
			}
		}
		// pgvector yields NULL distance for zero vectors
		m.Distance = 1
		if distance.Valid {
			m.Distance = float32(distance.Float64)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE collection = $1`, s.table), s.collection).Scan(&n)
	return n, err
}

// Close closes the DB if the store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) dimension(ctx context.Context, q queryer) (int, error) {
	var dim sql.NullInt64
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT vector_dims(embedding) FROM %s WHERE collection = $1 LIMIT 1`, s.table), s.collection).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(dim.Int64), nil
}

var _ vectordb.Store = (*Store)(nil)
