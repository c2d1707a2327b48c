// Package sqlitevec implements vectordb.Store on SQLite using the sqlite-vec
// shadow table layout.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/ragpipe/vectordb"
	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
	"github.com/viant/sqlite-vec/vector"
)

const defaultVTable = "emb_docs"

// Store keeps chunk rows in the _vec_<vtable> shadow table. Each collection
// is a dataset_id; scn records insertion order and is kept on replace.
type Store struct {
	db            *sql.DB
	dsn           string
	vtable        string
	shadow        string
	collection    string
	model         string
	indexSearch   bool
	openedLocally bool
	writeMu       sync.Mutex
	Logf          func(format string, args ...any)
}

// Option configures the sqlite-vec store.
type Option func(*Store)

// WithDB sets an existing *sql.DB to use.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithDSN sets the SQLite DSN to open (e.g. /path/to/rag.sqlite).
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithVTable sets the vec virtual table name (default: emb_docs).
func WithVTable(name string) Option {
	return func(s *Store) { s.vtable = name }
}

// WithCollection selects the dataset rows are written to.
func WithCollection(name string) Option {
	return func(s *Store) { s.collection = name }
}

// WithEmbeddingModel sets the embedding_model stored with rows.
func WithEmbeddingModel(model string) Option {
	return func(s *Store) { s.model = model }
}

// WithIndexSearch queries through the vec virtual table before falling back
// to an exact scan of the shadow table.
func WithIndexSearch(enabled bool) Option {
	return func(s *Store) { s.indexSearch = enabled }
}

// WithLogf sets the diagnostic logger.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(s *Store) { s.Logf = fn }
}

// NewStore opens or initializes a sqlite-vec Store.
func NewStore(ctx context.Context, opts ...Option) (*Store, error) {
	s := &Store{vtable: defaultVTable, collection: vectordb.DefaultCollection}
	for _, opt := range opts {
		opt(s)
	}
	if s.vtable == "" {
		s.vtable = defaultVTable
	}
	if s.collection == "" {
		s.collection = vectordb.DefaultCollection
	}
	s.shadow = "_vec_" + s.vtable

	if s.db == nil {
		if s.dsn == "" {
			return nil, ErrDSNRequired
		}
		dsn, err := prepareDSN(s.dsn)
		if err != nil {
			return nil, err
		}
		db, err := engine.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlitevec: open %s: %w", s.dsn, err)
		}
		if isMemoryDSN(dsn) {
			// every connection to :memory: is a separate database
			db.SetMaxOpenConns(1)
		} else {
			db.SetMaxOpenConns(4)
			db.SetMaxIdleConns(4)
		}
		s.db = db
		s.openedLocally = true
	}
	if err := vec.Register(s.db); err != nil {
		s.closeOwned()
		return nil, err
	}
	if err := s.ensureSchemaDDL(ctx); err != nil {
		s.closeOwned()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying DB if Store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) closeOwned() {
	if s.openedLocally && s.db != nil {
		_ = s.db.Close()
	}
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

type rowMeta struct {
	Index int               `json:"index"`
	Meta  map[string]string `json:"meta,omitempty"`
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
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := s.upsertTx(ctx, tx, records, dim); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceDocument archives every live row of the document and upserts
// records in the same transaction; rows that are written again are revived
// with their original scn.
func (s *Store) ReplaceDocument(ctx context.Context, documentID string, records []vectordb.Record) error {
	dim, _, err := vectordb.ValidateDocument(documentID, records)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if len(records) > 0 {
		storeDim, err := s.dimension(ctx, tx)
		if err != nil {
			return err
		}
		if err := vectordb.CheckDimension(storeDim, dim); err != nil {
			return err
		}
	}
	if _, err := s.archive(ctx, tx, documentID); err != nil {
		return err
	}
	if len(records) > 0 {
		if err := s.upsertTx(ctx, tx, records, dim); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) upsertTx(ctx context.Context, tx *sql.Tx, records []vectordb.Record, dim int) error {
	storeDim, err := s.dimension(ctx, tx)
	if err != nil {
		return err
	}
	if err := vectordb.CheckDimension(storeDim, dim); err != nil {
		return err
	}
	if storeDim == 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO vec_dataset(dataset_id, description, source_uri, last_scn, dimension) VALUES(?,?,?,0,?)
ON CONFLICT(dataset_id) DO UPDATE SET dimension=excluded.dimension`, s.collection, s.collection, "", dim); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(dataset_id, id, asset_id, content, meta, embedding, embedding_model, scn, archived)
VALUES(?,?,?,?,?,?,?,?,0)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	asset_id=excluded.asset_id,
	content=excluded.content,
	meta=excluded.meta,
	embedding=excluded.embedding,
	embedding_model=excluded.embedding_model,
	archived=0`, s.shadow))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		metaJSON, err := json.Marshal(rowMeta{Index: r.Index, Meta: r.Meta})
		if err != nil {
			return err
		}
		blob, err := vector.EncodeEmbedding(r.Vector)
		if err != nil {
			return err
		}
		scn, err := nextSCN(ctx, tx, s.collection)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, s.collection, r.ID, r.DocumentID, r.Text, string(metaJSON), blob, s.model, scn); err != nil {
			return fmt.Errorf("sqlitevec: upsert %s: %w", r.ID, err)
		}
	}
	return nil
}

// Query ranks the collection by cosine distance to v.
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
	if s.indexSearch {
		matches, err := s.matchQuery(ctx, v, k)
		if err == nil {
			return matches, nil
		}
		s.logf("sqlitevec: index search failed, scanning %s: %v", s.shadow, err)
	}
	return s.scanQuery(ctx, v, k)
}

func (s *Store) scanQuery(ctx context.Context, v []float32, k int) ([]vectordb.Match, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, asset_id, content, meta, embedding, scn FROM %s WHERE dataset_id = ? AND archived = 0`, s.shadow), s.collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var candidates []vectordb.Candidate
	for rows.Next() {
		var (
			id, docID, content, metaJSON string
			blob                         []byte
			scn                          int64
		)
		if err := rows.Scan(&id, &docID, &content, &metaJSON, &blob, &scn); err != nil {
			return nil, err
		}
		emb, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("sqlitevec: decode %s: %w", id, err)
		}
		m, err := toMatch(id, docID, content, metaJSON)
		if err != nil {
			return nil, err
		}
		m.Distance = vectordb.CosineDistance(v, emb)
		candidates = append(candidates, vectordb.Candidate{Match: m, Seq: scn})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectordb.Rank(candidates, k), nil
}

func (s *Store) matchQuery(ctx context.Context, v []float32, k int) ([]vectordb.Match, error) {
	blob, err := vector.EncodeEmbedding(v)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT d.id, d.asset_id, d.content, d.meta, v.match_score, d.scn
FROM %s v
JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
  AND d.archived = 0
ORDER BY v.match_score DESC, d.scn ASC
LIMIT ?`, s.vtable, s.shadow)
	rows, err := s.db.QueryContext(ctx, query, s.collection, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var candidates []vectordb.Candidate
	for rows.Next() {
		var (
			id, docID, content, metaJSON string
			score                        float64
			scn                          int64
		)
		if err := rows.Scan(&id, &docID, &content, &metaJSON, &score, &scn); err != nil {
			return nil, err
		}
		m, err := toMatch(id, docID, content, metaJSON)
		if err != nil {
			return nil, err
		}
		m.Distance = float32(1 - score)
		candidates = append(candidates, vectordb.Candidate{Match: m, Seq: scn})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vectordb.Rank(candidates, k), nil
}

// Count returns the number of live rows in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE dataset_id = ? AND archived = 0`, s.shadow), s.collection).Scan(&n)
	return n, err
}

// Remove soft-deletes the rows of one document.
func (s *Store) Remove(ctx context.Context, documentID string) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.archive(ctx, s.db, documentID)
}

func (s *Store) archive(ctx context.Context, q queryer, documentID string) (int, error) {
	res, err := q.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET archived=1 WHERE dataset_id=? AND asset_id=? AND archived=0`, s.shadow), s.collection, documentID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) logf(format string, args ...any) {
	if s.Logf != nil {
		s.Logf(format, args...)
	}
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) dimension(ctx context.Context, q queryer) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, `SELECT dimension FROM vec_dataset WHERE dataset_id = ?`, s.collection).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dim, err
}

func nextSCN(ctx context.Context, q queryer, datasetID string) (int64, error) {
	if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO vec_dataset_scn(dataset_id, next_scn) VALUES(?, 0)`, datasetID); err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `UPDATE vec_dataset_scn SET next_scn = next_scn + 1 WHERE dataset_id = ?`, datasetID); err != nil {
		return 0, err
	}
	var scn int64
	if err := q.QueryRowContext(ctx, `SELECT next_scn FROM vec_dataset_scn WHERE dataset_id = ?`, datasetID).Scan(&scn); err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `UPDATE vec_dataset SET last_scn = ? WHERE dataset_id = ? AND last_scn < ?`, scn, datasetID, scn); err != nil {
		return 0, err
	}
	return scn, nil
}

func toMatch(id, docID, content, metaJSON string) (vectordb.Match, error) {
	m := vectordb.Match{ID: id, DocumentID: docID, Text: content}
	if metaJSON == "" {
		return m, nil
	}
	var rm rowMeta
	if err := json.Unmarshal([]byte(metaJSON), &rm); err != nil {
		return m, fmt.Errorf("sqlitevec: meta of %s: %w", id, err)
	}
	m.Index = rm.Index
	m.Meta = rm.Meta
	return m, nil
}

func (s *Store) ensureSchemaDDL(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vec_dataset (
			dataset_id   TEXT PRIMARY KEY,
			description  TEXT,
			source_uri   TEXT,
			last_scn     INTEGER NOT NULL DEFAULT 0,
			dimension    INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS vec_dataset_scn (
			dataset_id TEXT PRIMARY KEY,
			next_scn   INTEGER NOT NULL DEFAULT 0
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id      TEXT NOT NULL,
			id              TEXT NOT NULL,
			asset_id        TEXT NOT NULL,
			content         TEXT,
			meta            TEXT,
			embedding       BLOB,
			embedding_model TEXT,
			scn             INTEGER NOT NULL,
			archived        INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(dataset_id, id)
		);`, s.shadow),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_asset ON %s(dataset_id, asset_id);`, s.shadow, s.shadow),
		`CREATE TABLE IF NOT EXISTS vector_storage (
			shadow_table_name TEXT NOT NULL,
			dataset_id        TEXT NOT NULL DEFAULT '',
			"index"           BLOB,
			PRIMARY KEY (shadow_table_name, dataset_id)
		);`,
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(doc_id);`, s.vtable),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(err.Error(), "no such module: vec") && strings.Contains(stmt, "VIRTUAL TABLE") {
				s.logf("sqlitevec: vec module unavailable, index search disabled")
				s.indexSearch = false
				continue
			}
			return fmt.Errorf("sqlitevec: ensure schema: %w", err)
		}
	}
	return nil
}

var _ vectordb.Store = (*Store)(nil)
