package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/vector"
)

var (
	bucketCollections = []byte("collections")
	bucketRecords     = []byte("records")
	bucketIndexes     = []byte("indexes")
)

// BoltBackend implements Backend using BoltDB.
// Records live in one nested bucket per collection keyed by big-endian seq, so a cursor
// walks them in insertion order.
type BoltBackend struct {
	db *bbolt.DB
}

type storedRecord struct {
	ID        string `json:"id"`
	Text      string `json:"t"`
	Vector    []byte `json:"v"`
	CreatedAt int64  `json:"c"`
}

type storedIndex struct {
	Params models.IndexParams `json:"params"`
	Seq    int64              `json:"seq"`
	Data   []byte             `json:"data"`
}

// NewBoltBackend opens or creates a Bolt database at path.
func NewBoltBackend(path string) (*BoltBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketCollections, bucketRecords, bucketIndexes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltBackend{db: db}, nil
}

func seqKey(seq int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(seq))
	return k
}

// CreateCollection stores a collection schema and its record bucket.
func (s *BoltBackend) CreateCollection(_ context.Context, schema models.CollectionSchema) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		collections := tx.Bucket(bucketCollections)
		if collections.Get([]byte(schema.Name)) != nil {
			return fmt.Errorf("collection already exists: %s", schema.Name)
		}
		data, err := json.Marshal(schema)
		if err != nil {
			return err
		}
		if err := collections.Put([]byte(schema.Name), data); err != nil {
			return err
		}
		_, err = tx.Bucket(bucketRecords).CreateBucketIfNotExists([]byte(schema.Name))
		return err
	})
}

// GetCollection returns a collection schema by name.
func (s *BoltBackend) GetCollection(_ context.Context, name string) (*models.CollectionSchema, error) {
	var schema models.CollectionSchema
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCollections).Get([]byte(name))
		if data == nil {
			return notFound(name)
		}
		return json.Unmarshal(data, &schema)
	})
	if err != nil {
		return nil, err
	}
	return &schema, nil
}

// ListCollections returns all collection schemas ordered by name.
func (s *BoltBackend) ListCollections(_ context.Context) ([]models.CollectionSchema, error) {
	var out []models.CollectionSchema
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(_, v []byte) error {
			var schema models.CollectionSchema
			if err := json.Unmarshal(v, &schema); err != nil {
				return err
			}
			out = append(out, schema)
			return nil
		})
	})
	return out, err
}

// DropCollection removes a collection with its records and index.
func (s *BoltBackend) DropCollection(_ context.Context, name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(name)
		collections := tx.Bucket(bucketCollections)
		if collections.Get(key) == nil {
			return notFound(name)
		}
		if err := collections.Delete(key); err != nil {
			return err
		}
		records := tx.Bucket(bucketRecords)
		if records.Bucket(key) != nil {
			if err := records.DeleteBucket(key); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketIndexes).Delete(key)
	})
}

// InsertRecords stores records in one Bolt transaction.
func (s *BoltBackend) InsertRecords(_ context.Context, collection string, records []models.Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords).Bucket([]byte(collection))
		if b == nil {
			return notFound(collection)
		}
		for _, r := range records {
			key := seqKey(r.Seq)
			if b.Get(key) != nil {
				return fmt.Errorf("duplicate record seq %d", r.Seq)
			}
			data, err := json.Marshal(storedRecord{
				ID:        r.ID,
				Text:      r.Text,
				Vector:    vector.EncodeFloat32s(r.Vector),
				CreatedAt: r.CreatedAt.UnixNano(),
			})
			if err != nil {
				return err
			}
			if err := b.Put(key, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadRecords returns all records of a collection ordered by seq.
func (s *BoltBackend) LoadRecords(_ context.Context, collection string) ([]models.Record, error) {
	var out []models.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords).Bucket([]byte(collection))
		if b == nil {
			return notFound(collection)
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return err
			}
			vec, err := vector.DecodeFloat32s(stored.Vector)
			if err != nil {
				return fmt.Errorf("record %s: %w", stored.ID, err)
			}
			out = append(out, models.Record{
				ID:        stored.ID,
				Seq:       int64(binary.BigEndian.Uint64(k)),
				Vector:    vec,
				Text:      stored.Text,
				CreatedAt: time.Unix(0, stored.CreatedAt),
			})
			return nil
		})
	})
	return out, err
}

// SaveIndex stores or replaces the index snapshot of a collection.
func (s *BoltBackend) SaveIndex(_ context.Context, collection string, snap IndexSnapshot) error {
	data, err := json.Marshal(storedIndex(snap))
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIndexes).Put([]byte(collection), data)
	})
}

// LoadIndex returns the saved index snapshot, or nil if none.
func (s *BoltBackend) LoadIndex(_ context.Context, collection string) (*IndexSnapshot, error) {
	var snap *IndexSnapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketIndexes).Get([]byte(collection))
		if data == nil {
			return nil
		}
		var stored storedIndex
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		out := IndexSnapshot(stored)
		snap = &out
		return nil
	})
	return snap, err
}

// Close closes the database.
func (s *BoltBackend) Close() error {
	return s.db.Close()
}
