package vector

import (
	"fmt"

	"github.com/hyperjump/vecsearch/internal/models"
)

// NewIndex creates an empty index for params.
// Supported types: FLAT (exact) and IVF_FLAT (partitioned; exact when every partition is probed).
func NewIndex(params models.IndexParams, dimensions int) (Index, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch params.IndexType {
	case models.IndexFlat:
		return NewFlatIndex(params.Metric, dimensions)
	case models.IndexIVFFlat:
		return NewIVFIndex(params.Metric, dimensions, params.NList)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: FLAT, IVF_FLAT)", params.IndexType)
	}
}

// Restore recreates an index from a snapshot produced by MarshalBinary.
func Restore(data []byte) (Index, error) {
	params, dim, err := SnapshotParams(data)
	if err != nil {
		return nil, err
	}
	idx, err := NewIndex(params, dim)
	if err != nil {
		return nil, err
	}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return idx, nil
}
