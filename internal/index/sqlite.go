package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		collection  TEXT NOT NULL,
		id          TEXT NOT NULL,
		document_id TEXT NOT NULL,
		content     TEXT NOT NULL,
		embedding   BLOB NOT NULL,
		metadata    TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_records_document ON records(collection, document_id)`,
}

// SQLiteStore persists records in a single SQLite file. Similarity is
// computed in Go over the rows that pass the filter.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	collection string
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path, collection string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite takes one writer at a time; queue writers in the pool instead.
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, path: path, collection: collection}, nil
}

func (s *SQLiteStore) ReplaceDocument(ctx context.Context, documentID string, records []Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND document_id = ?`,
		s.collection, documentID); err != nil {
		return fmt.Errorf("clearing document records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (collection, id, document_id, content, embedding, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			s.collection, r.ID, documentID, r.Content, encodeVector(r.Embedding), string(md), now,
		); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]Result, error) {
	query := `SELECT id, content, embedding, metadata FROM records WHERE collection = ?`
	args := []any{s.collection}
	switch {
	case filter == nil:
	case filter.Key == MetaDocumentID && !filter.Exclude:
		query += ` AND document_id = ?`
		args = append(args, filter.Value)
	case filter.Key == MetaDocumentID:
		query += ` AND document_id != ?`
		args = append(args, filter.Value)
	case !filter.Exclude:
		query += ` AND json_extract(metadata, ?) = ?`
		args = append(args, "$."+filter.Key, filter.Value)
	default:
		query += ` AND (json_extract(metadata, ?) IS NULL OR json_extract(metadata, ?) != ?)`
		args = append(args, "$."+filter.Key, "$."+filter.Key, filter.Value)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r      Result
			blob   []byte
			mdJSON string
		)
		if err := rows.Scan(&r.ID, &r.Content, &blob, &mdJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		emb, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(mdJSON), &r.Metadata); err != nil {
			return nil, fmt.Errorf("record %s metadata: %w", r.ID, err)
		}
		if r.Distance, err = cosineDistance(vector, emb); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return topK(results, k), nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND document_id = ?`,
		s.collection, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting document records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted records: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, s.collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Collection() string { return s.collection }

func (s *SQLiteStore) Location() string { return s.path }

func (s *SQLiteStore) Close() error { return s.db.Close() }
