package models

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrDimensionMismatch  = errors.New("dimension mismatch")
	ErrSchemaConflict     = errors.New("schema conflict")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrIndexNotReady      = errors.New("index not ready")
	ErrModel              = errors.New("embedding model error")
	ErrEngine             = errors.New("engine error")
	ErrTimeout            = errors.New("operation timed out")
)

// ErrMetricMismatch is returned when a query asks for a metric the index was not built with.
// It classifies as an engine error.
var ErrMetricMismatch = fmt.Errorf("%w: metric differs from index metric", ErrEngine)

// ErrorKind is the stable, serializable name of an error class.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindDimensionMismatch  ErrorKind = "dimension_mismatch"
	KindSchemaConflict     ErrorKind = "schema_conflict"
	KindPayloadTooLarge    ErrorKind = "payload_too_large"
	KindCollectionNotFound ErrorKind = "collection_not_found"
	KindIndexNotReady      ErrorKind = "index_not_ready"
	KindModel              ErrorKind = "model"
	KindEngine             ErrorKind = "engine"
	KindTimeout            ErrorKind = "timeout"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrTimeout, KindTimeout},
	{context.DeadlineExceeded, KindTimeout},
	{ErrValidation, KindValidation},
	{ErrDimensionMismatch, KindDimensionMismatch},
	{ErrSchemaConflict, KindSchemaConflict},
	{ErrPayloadTooLarge, KindPayloadTooLarge},
	{ErrCollectionNotFound, KindCollectionNotFound},
	{ErrIndexNotReady, KindIndexNotReady},
	{ErrModel, KindModel},
	{ErrEngine, KindEngine},
}

// KindOf classifies err. Unrecognized non-nil errors are engine errors; nil yields "".
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindEngine
}

// OpError records the operation and collection an error occurred in.
type OpError struct {
	Op         string
	Collection string
	Err        error
}

func (e *OpError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("%s [collection=%s]: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err with the operation name and collection. A nil err stays nil.
func NewOpError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Collection: collection, Err: err}
}
