// Package collection provides the vector store: named collections of records, their index
// lifecycle, and top-k search.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/storage"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// Store owns the resident collections and the backend they persist to.
type Store struct {
	backend storage.Backend
	logger  *zap.Logger
	nprobe  int

	mu          sync.RWMutex
	collections map[string]*collection
}

// collection is the resident state of one collection.
// writeMu serializes writers across validate, persist and publish; mu guards the fields below it.
type collection struct {
	schema  models.CollectionSchema
	writeMu sync.Mutex

	mu      sync.RWMutex
	records []models.Record
	pos     map[int64]int
	nextSeq int64
	index   vector.Index
	state   models.IndexState
	build   *BuildTask
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithDefaultNProbe sets the number of IVF partitions scanned when a query does not ask for one.
func WithDefaultNProbe(n int) StoreOption {
	return func(s *Store) { s.nprobe = n }
}

// NewStore creates a store over backend. The store owns backend and closes it on Close.
func NewStore(backend storage.Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend:     backend,
		logger:      zap.NewNop(),
		nprobe:      1,
		collections: make(map[string]*collection),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newCollection(schema models.CollectionSchema) *collection {
	return &collection{
		schema:  schema,
		pos:     make(map[int64]int),
		nextSeq: 1,
		state:   models.IndexAbsent,
	}
}

// EnsureCollection creates the collection if it does not exist and makes it resident.
// An existing collection with the same schema is a no-op; a different schema is a schema conflict.
func (s *Store) EnsureCollection(ctx context.Context, schema models.CollectionSchema) error {
	const op = "ensure_collection"
	if err := schema.Validate(); err != nil {
		return models.NewOpError(op, schema.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[schema.Name]; ok {
		if err := checkSchema(c.schema, schema); err != nil {
			return models.NewOpError(op, schema.Name, err)
		}
		return nil
	}

	existing, err := s.backend.GetCollection(ctx, schema.Name)
	switch {
	case err == nil:
		if err := checkSchema(*existing, schema); err != nil {
			return models.NewOpError(op, schema.Name, err)
		}
		c, err := s.load(ctx, *existing)
		if err != nil {
			return models.NewOpError(op, schema.Name, err)
		}
		s.collections[schema.Name] = c
		return nil
	case errors.Is(err, models.ErrCollectionNotFound):
		if err := s.backend.CreateCollection(ctx, schema); err != nil {
			return models.NewOpError(op, schema.Name, err)
		}
		s.collections[schema.Name] = newCollection(schema)
		s.logger.Info("collection created",
			zap.String("collection", schema.Name),
			zap.Int("dimension", schema.Dimension),
			zap.Int("max_text_length", schema.MaxTextLength))
		return nil
	default:
		return models.NewOpError(op, schema.Name, err)
	}
}

func checkSchema(have, want models.CollectionSchema) error {
	if have.Dimension != want.Dimension || have.MaxTextLength != want.MaxTextLength {
		return fmt.Errorf("%w: existing dimension=%d max_text_length=%d, requested dimension=%d max_text_length=%d",
			models.ErrSchemaConflict, have.Dimension, have.MaxTextLength, want.Dimension, want.MaxTextLength)
	}
	return nil
}

// Load makes a persisted collection resident. Loading a resident collection is a no-op.
// A saved index is restored so the collection is queryable on return.
func (s *Store) Load(ctx context.Context, name string) error {
	_, err := s.get(ctx, name)
	if err != nil {
		return models.NewOpError("load", name, err)
	}
	return nil
}

// get returns the resident collection, loading it from the backend if needed.
func (s *Store) get(ctx context.Context, name string) (*collection, error) {
	s.mu.RLock()
	c, ok := s.collections[name]
	s.mu.RUnlock()
	if ok {
		return c, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}
	schema, err := s.backend.GetCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	c, err = s.load(ctx, *schema)
	if err != nil {
		return nil, err
	}
	s.collections[name] = c
	return c, nil
}

// load reads records and the saved index of a persisted collection.
func (s *Store) load(ctx context.Context, schema models.CollectionSchema) (*collection, error) {
	records, err := s.backend.LoadRecords(ctx, schema.Name)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	c := newCollection(schema)
	for _, r := range records {
		c.pos[r.Seq] = len(c.records)
		c.records = append(c.records, r)
		if r.Seq >= c.nextSeq {
			c.nextSeq = r.Seq + 1
		}
	}

	snap, err := s.backend.LoadIndex(ctx, schema.Name)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if snap != nil {
		idx, err := s.restoreIndex(ctx, c, snap)
		if err != nil {
			return nil, err
		}
		c.index = idx
		c.state = models.IndexReady
	}

	s.logger.Info("collection loaded",
		zap.String("collection", schema.Name),
		zap.Int("records", len(c.records)),
		zap.String("index_state", string(c.state)))
	return c, nil
}

// restoreIndex decodes a saved snapshot and adds records inserted after it was taken.
// An unreadable snapshot is rebuilt from the records with the saved params.
func (s *Store) restoreIndex(ctx context.Context, c *collection, snap *storage.IndexSnapshot) (vector.Index, error) {
	idx, err := vector.Restore(snap.Data)
	if err == nil && idx.Dimensions() == c.schema.Dimension {
		var tail []vector.Entry
		for _, r := range c.records {
			if r.Seq > snap.Seq {
				tail = append(tail, vector.Entry{Seq: r.Seq, Vector: r.Vector})
			}
		}
		if err := idx.Add(tail); err != nil {
			return nil, fmt.Errorf("restore index: %w", err)
		}
		return idx, nil
	}

	s.logger.Warn("index snapshot unusable, rebuilding",
		zap.String("collection", c.schema.Name), zap.Error(err))
	idx, err = vector.NewIndex(snap.Params, c.schema.Dimension)
	if err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	if err := idx.Build(ctx, entriesOf(c.records)); err != nil {
		return nil, fmt.Errorf("rebuild index: %w", err)
	}
	return idx, nil
}

// Insert validates the whole batch, commits it to the backend in one transaction and then
// publishes it to readers under a single lock acquisition. On error nothing is stored.
func (s *Store) Insert(ctx context.Context, name string, batch []models.NewRecord) (int, error) {
	const op = "insert"
	c, err := s.get(ctx, name)
	if err != nil {
		return 0, models.NewOpError(op, name, err)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	for i, r := range batch {
		if len(r.Vector) != c.schema.Dimension {
			return 0, models.NewOpError(op, name, fmt.Errorf("%w: record %d has %d, expected %d",
				models.ErrDimensionMismatch, i, len(r.Vector), c.schema.Dimension))
		}
		if n := utf8.RuneCountInString(r.Text); n > c.schema.MaxTextLength {
			return 0, models.NewOpError(op, name, fmt.Errorf("%w: record %d text has %d characters, limit %d",
				models.ErrPayloadTooLarge, i, n, c.schema.MaxTextLength))
		}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	seq := c.nextSeq
	c.mu.RUnlock()

	now := time.Now()
	records := make([]models.Record, len(batch))
	for i, r := range batch {
		records[i] = models.Record{
			ID:        uuid.New().String(),
			Seq:       seq + int64(i),
			Vector:    append([]float32(nil), r.Vector...),
			Text:      r.Text,
			CreatedAt: now,
		}
	}
	if err := s.backend.InsertRecords(ctx, name, records); err != nil {
		return 0, models.NewOpError(op, name, fmt.Errorf("%w: commit: %v", models.ErrEngine, err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range records {
		c.pos[r.Seq] = len(c.records)
		c.records = append(c.records, r)
	}
	c.nextSeq = seq + int64(len(records))
	if c.index != nil {
		if err := c.index.Add(entriesOf(records)); err != nil {
			// the records are committed, so the index is withdrawn until a rebuild covers them
			c.index = nil
			c.state = models.IndexFailed
			s.logger.Error("index add failed, index withdrawn until rebuilt",
				zap.String("collection", name), zap.Error(err))
		}
	}
	s.logger.Debug("records inserted", zap.String("collection", name), zap.Int("count", len(records)))
	return len(records), nil
}

// Drop removes a collection from the backend and from memory, cancelling any running build.
func (s *Store) Drop(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		c.mu.Lock()
		if c.build != nil {
			c.build.Cancel()
			c.build = nil
		}
		c.mu.Unlock()
	}
	if err := s.backend.DropCollection(ctx, name); err != nil {
		return models.NewOpError("drop", name, err)
	}
	delete(s.collections, name)
	s.logger.Info("collection dropped", zap.String("collection", name))
	return nil
}

// Stats returns a summary of a collection.
func (s *Store) Stats(ctx context.Context, name string) (models.CollectionStats, error) {
	c, err := s.get(ctx, name)
	if err != nil {
		return models.CollectionStats{}, models.NewOpError("stats", name, err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := models.CollectionStats{
		Schema:     c.schema,
		Records:    len(c.records),
		IndexState: c.state,
	}
	if c.index != nil {
		p := c.index.Params()
		stats.Index = &p
		if pi, ok := c.index.(vector.Partitioned); ok {
			stats.Partitions = pi.Partitions()
		}
	}
	return stats, nil
}

// Collections returns the names of persisted collections.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	schemas, err := s.backend.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(schemas))
	for i, schema := range schemas {
		names[i] = schema.Name
	}
	return names, nil
}

// Close cancels running builds and closes the backend.
func (s *Store) Close() error {
	s.mu.Lock()
	var tasks []*BuildTask
	for _, c := range s.collections {
		c.mu.Lock()
		if c.build != nil {
			c.build.Cancel()
			tasks = append(tasks, c.build)
		}
		c.mu.Unlock()
	}
	s.mu.Unlock()
	for _, t := range tasks {
		<-t.Done()
	}
	return s.backend.Close()
}

func entriesOf(records []models.Record) []vector.Entry {
	out := make([]vector.Entry, len(records))
	for i, r := range records {
		out[i] = vector.Entry{Seq: r.Seq, Vector: r.Vector}
	}
	return out
}
