package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/vecsearch/internal/models"
)

// MemoryBackend keeps everything in process memory. Nothing survives Close.
type MemoryBackend struct {
	mu          sync.RWMutex
	collections map[string]models.CollectionSchema
	records     map[string][]models.Record
	indexes     map[string]IndexSnapshot
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]models.CollectionSchema),
		records:     make(map[string][]models.Record),
		indexes:     make(map[string]IndexSnapshot),
	}
}

func (m *MemoryBackend) CreateCollection(_ context.Context, schema models.CollectionSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[schema.Name]; ok {
		return fmt.Errorf("collection already exists: %s", schema.Name)
	}
	m.collections[schema.Name] = schema
	return nil
}

func (m *MemoryBackend) GetCollection(_ context.Context, name string) (*models.CollectionSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schema, ok := m.collections[name]
	if !ok {
		return nil, notFound(name)
	}
	return &schema, nil
}

func (m *MemoryBackend) ListCollections(_ context.Context) ([]models.CollectionSchema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CollectionSchema, 0, len(m.collections))
	for _, schema := range m.collections {
		out = append(out, schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryBackend) DropCollection(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		return notFound(name)
	}
	delete(m.collections, name)
	delete(m.records, name)
	delete(m.indexes, name)
	return nil
}

func (m *MemoryBackend) InsertRecords(ctx context.Context, collection string, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		return notFound(collection)
	}
	m.records[collection] = append(m.records[collection], cloneRecords(records)...)
	return nil
}

func (m *MemoryBackend) LoadRecords(_ context.Context, collection string) ([]models.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.collections[collection]; !ok {
		return nil, notFound(collection)
	}
	return cloneRecords(m.records[collection]), nil
}

func (m *MemoryBackend) SaveIndex(_ context.Context, collection string, snap IndexSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Data = append([]byte(nil), snap.Data...)
	m.indexes[collection] = snap
	return nil
}

func (m *MemoryBackend) LoadIndex(_ context.Context, collection string) (*IndexSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.indexes[collection]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}

func cloneRecords(in []models.Record) []models.Record {
	out := make([]models.Record, len(in))
	for i, r := range in {
		r.Vector = append([]float32(nil), r.Vector...)
		out[i] = r
	}
	return out
}
