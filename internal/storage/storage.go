// Package storage defines the persistence interface for collections, records and index snapshots.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/vecsearch/internal/models"
)

// Backend types accepted by NewBackend.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// IndexSnapshot is a persisted index. Seq is the highest record sequence the snapshot covers;
// records with a larger Seq are added to the restored index on load.
type IndexSnapshot struct {
	Params models.IndexParams
	Seq    int64
	Data   []byte
}

// Backend persists collection schemas, records and index snapshots.
type Backend interface {
	// CreateCollection stores a new schema. Creating an existing collection is an error.
	CreateCollection(ctx context.Context, schema models.CollectionSchema) error
	// GetCollection returns models.ErrCollectionNotFound when name does not exist.
	GetCollection(ctx context.Context, name string) (*models.CollectionSchema, error)
	ListCollections(ctx context.Context) ([]models.CollectionSchema, error)
	DropCollection(ctx context.Context, name string) error

	// InsertRecords commits the batch in one transaction. On error nothing is stored.
	InsertRecords(ctx context.Context, collection string, records []models.Record) error
	// LoadRecords returns all records ordered by Seq.
	LoadRecords(ctx context.Context, collection string) ([]models.Record, error)

	SaveIndex(ctx context.Context, collection string, snap IndexSnapshot) error
	// LoadIndex returns nil, nil when no index was saved.
	LoadIndex(ctx context.Context, collection string) (*IndexSnapshot, error)

	Close() error
}

// NewBackend opens the backend named by kind. path is ignored for the memory backend.
func NewBackend(kind, path string) (Backend, error) {
	switch strings.ToLower(kind) {
	case "", BackendSQLite:
		return NewSQLiteBackend(path)
	case BackendBolt:
		return NewBoltBackend(path)
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, bolt, memory)", kind)
	}
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", models.ErrCollectionNotFound, name)
}
