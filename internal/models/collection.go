package models

import (
	"fmt"
	"strings"
)

// Metric is the similarity or distance function used by an index.
type Metric string

const (
	// MetricCosine is cosine similarity; higher is better, identical direction scores 1.
	MetricCosine Metric = "COSINE"
	// MetricIP is the raw inner product; higher is better.
	MetricIP Metric = "IP"
	// MetricL2 is Euclidean distance; lower is better, identical vectors score 0.
	MetricL2 Metric = "L2"
)

// ParseMetric normalizes s into a Metric. Matching is case-insensitive.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToUpper(strings.TrimSpace(s))) {
	case MetricCosine:
		return MetricCosine, nil
	case MetricIP:
		return MetricIP, nil
	case MetricL2:
		return MetricL2, nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q (supported: COSINE, IP, L2)", ErrValidation, s)
	}
}

// HigherIsBetter reports whether larger scores rank first under m.
func (m Metric) HigherIsBetter() bool {
	return m != MetricL2
}

// IndexType selects the search structure built over a collection.
type IndexType string

const (
	// IndexFlat scans every record; results are exact.
	IndexFlat IndexType = "FLAT"
	// IndexIVFFlat partitions records into NList k-means clusters and scans NProbe of them per query.
	IndexIVFFlat IndexType = "IVF_FLAT"
)

// ParseIndexType normalizes s into an IndexType.
func ParseIndexType(s string) (IndexType, error) {
	switch IndexType(strings.ToUpper(strings.TrimSpace(s))) {
	case IndexFlat:
		return IndexFlat, nil
	case IndexIVFFlat:
		return IndexIVFFlat, nil
	default:
		return "", fmt.Errorf("%w: unknown index type %q (supported: FLAT, IVF_FLAT)", ErrValidation, s)
	}
}

// IndexState is the lifecycle state of a collection's index.
type IndexState string

const (
	IndexAbsent   IndexState = "absent"
	IndexBuilding IndexState = "building"
	IndexReady    IndexState = "ready"
	IndexFailed   IndexState = "failed"
)

// CollectionSchema is the fixed shape of a collection.
type CollectionSchema struct {
	Name          string `json:"name"`
	Dimension     int    `json:"dimension"`
	MaxTextLength int    `json:"max_text_length"`
}

// Validate checks the schema fields.
func (s CollectionSchema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrValidation)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrValidation, s.Dimension)
	}
	if s.MaxTextLength <= 0 {
		return fmt.Errorf("%w: max text length must be positive, got %d", ErrValidation, s.MaxTextLength)
	}
	return nil
}

// IndexParams are fixed when an index is built; changing Metric requires a rebuild.
type IndexParams struct {
	Metric    Metric    `json:"metric"`
	IndexType IndexType `json:"index_type"`
	// NList is the number of IVF partitions. Ignored for FLAT.
	NList int `json:"nlist,omitempty"`
}

// Validate checks the params, normalizes their case and fills NList for IVF when unset.
func (p *IndexParams) Validate() error {
	metric, err := ParseMetric(string(p.Metric))
	if err != nil {
		return err
	}
	indexType, err := ParseIndexType(string(p.IndexType))
	if err != nil {
		return err
	}
	p.Metric, p.IndexType = metric, indexType
	if p.IndexType == IndexIVFFlat {
		if p.NList < 0 {
			return fmt.Errorf("%w: nlist must not be negative, got %d", ErrValidation, p.NList)
		}
		if p.NList == 0 {
			p.NList = 128
		}
	}
	return nil
}

// SearchParams are per-query settings.
type SearchParams struct {
	K int
	// NProbe is the number of IVF partitions to scan; 0 uses the store default. Ignored for FLAT.
	NProbe int
	// Metric, when set, must equal the index metric.
	Metric Metric
}

// CollectionStats summarizes a resident collection.
type CollectionStats struct {
	Schema     CollectionSchema `json:"schema"`
	Records    int              `json:"records"`
	IndexState IndexState       `json:"index_state"`
	Index      *IndexParams     `json:"index,omitempty"`
	// Partitions is the number of trained IVF partitions. It is 0 for FLAT and for an IVF
	// index still holding fewer than NList records.
	Partitions int `json:"partitions"`
}
