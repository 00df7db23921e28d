// Package models defines core data structures for collections, records, search hits, and outcomes.
package models

import "time"

// Record is one stored sentence with its embedding.
type Record struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Vector    []float32 `json:"-"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord is the caller-supplied part of a record; ID and Seq are assigned by the store.
type NewRecord struct {
	Vector []float32
	Text   string
}

// Hit is a single search result against a collection.
type Hit struct {
	ID    string  `json:"id"`
	Seq   int64   `json:"seq"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
