package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// SQLiteBackend implements Backend using SQLite.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		max_text_length INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL UNIQUE,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, seq)
	);

	CREATE TABLE IF NOT EXISTS indexes (
		collection TEXT PRIMARY KEY,
		metric TEXT NOT NULL,
		index_type TEXT NOT NULL,
		nlist INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		snapshot BLOB,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateCollection inserts a collection schema.
func (s *SQLiteBackend) CreateCollection(ctx context.Context, schema models.CollectionSchema) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, dimension, max_text_length, created_at) VALUES (?, ?, ?, ?)`,
		schema.Name, schema.Dimension, schema.MaxTextLength, time.Now(),
	)
	return err
}

// GetCollection returns a collection schema by name.
func (s *SQLiteBackend) GetCollection(ctx context.Context, name string) (*models.CollectionSchema, error) {
	var schema models.CollectionSchema
	err := s.db.QueryRowContext(ctx,
		`SELECT name, dimension, max_text_length FROM collections WHERE name = ?`, name,
	).Scan(&schema.Name, &schema.Dimension, &schema.MaxTextLength)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

// ListCollections returns all collection schemas ordered by name.
func (s *SQLiteBackend) ListCollections(ctx context.Context) ([]models.CollectionSchema, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, dimension, max_text_length FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CollectionSchema
	for rows.Next() {
		var schema models.CollectionSchema
		if err := rows.Scan(&schema.Name, &schema.Dimension, &schema.MaxTextLength); err != nil {
			return nil, err
		}
		out = append(out, schema)
	}
	return out, rows.Err()
}

// DropCollection removes a collection with its records and index.
func (s *SQLiteBackend) DropCollection(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(name)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM indexes WHERE collection = ?`, name); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertRecords inserts records in a transaction.
func (s *SQLiteBackend) InsertRecords(ctx context.Context, collection string, records []models.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections WHERE name = ?`, collection).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return notFound(collection)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (collection, seq, id, text, vector, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, collection, r.Seq, r.ID, r.Text, vector.EncodeFloat32s(r.Vector), r.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadRecords returns all records of a collection ordered by seq.
func (s *SQLiteBackend) LoadRecords(ctx context.Context, collection string) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seq, text, vector, created_at FROM records WHERE collection = ? ORDER BY seq`,
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var r models.Record
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Seq, &r.Text, &blob, &r.CreatedAt); err != nil {
			return nil, err
		}
		if r.Vector, err = vector.DecodeFloat32s(blob); err != nil {
			return nil, fmt.Errorf("record %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveIndex stores or replaces the index snapshot of a collection.
func (s *SQLiteBackend) SaveIndex(ctx context.Context, collection string, snap IndexSnapshot) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO indexes (collection, metric, index_type, nlist, seq, snapshot, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection) DO UPDATE SET
		   metric = excluded.metric, index_type = excluded.index_type, nlist = excluded.nlist,
		   seq = excluded.seq, snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		collection, string(snap.Params.Metric), string(snap.Params.IndexType), snap.Params.NList,
		snap.Seq, snap.Data, time.Now(),
	)
	return err
}

// LoadIndex returns the saved index snapshot, or nil if none.
func (s *SQLiteBackend) LoadIndex(ctx context.Context, collection string) (*IndexSnapshot, error) {
	var snap IndexSnapshot
	var metric, indexType string
	err := s.db.QueryRowContext(ctx,
		`SELECT metric, index_type, nlist, seq, snapshot FROM indexes WHERE collection = ?`, collection,
	).Scan(&metric, &indexType, &snap.Params.NList, &snap.Seq, &snap.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Params.Metric = models.Metric(metric)
	snap.Params.IndexType = models.IndexType(indexType)
	return &snap, nil
}

// Close closes the database connection.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
