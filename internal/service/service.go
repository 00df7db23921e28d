// Package service is the facade the HTTP server, CLI, inbox watcher and agent call into.
// It turns sentences into records and queries into ranked matches, and reports every
// failure as a tagged outcome instead of an error.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/collection"
	"github.com/hyperjump/vecsearch/internal/embedding"
	"github.com/hyperjump/vecsearch/internal/models"
)

const (
	defaultK       = 2
	defaultMaxK    = 100
	defaultTimeout = 30 * time.Second
)

// Service binds one collection of a store to an embedder.
type Service struct {
	store      *collection.Store
	embedder   embedding.Embedder
	collection string
	defaultK   int
	maxK       int
	nprobe     int
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTimeout bounds every Add and Search call. Zero keeps the default of 30s.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSearchDefaults sets the k used when a caller passes k <= 0, the upper bound on k and
// the nprobe used when a caller passes none. Non-positive values keep the defaults.
func WithSearchDefaults(k, maxK, nprobe int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultK = k
		}
		if maxK > 0 {
			s.maxK = maxK
		}
		if nprobe > 0 {
			s.nprobe = nprobe
		}
	}
}

// New returns a Service over the named collection.
func New(store *collection.Store, embedder embedding.Embedder, collectionName string, opts ...Option) *Service {
	s := &Service{
		store:      store,
		embedder:   embedder,
		collection: collectionName,
		defaultK:   defaultK,
		maxK:       defaultMaxK,
		timeout:    defaultTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaultK > s.maxK {
		s.defaultK = s.maxK
	}
	return s
}

// Collection returns the name of the collection the service writes to.
func (s *Service) Collection() string {
	return s.collection
}

// Add embeds sentences and stores them as one batch. Either every sentence is stored or none.
func (s *Service) Add(ctx context.Context, sentences []string) (out models.InsertOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during add", zap.Any("panic", r))
			err := fmt.Errorf("%w: panic: %v", models.ErrEngine, r)
			out = models.InsertOutcome{Message: err.Error(), Kind: models.KindEngine, Err: err}
		}
	}()

	if err := validateSentences(sentences); err != nil {
		return insertFailure(models.KindValidation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vectors, err := s.embedder.EmbedBatch(ctx, sentences)
	if err == nil && len(vectors) != len(sentences) {
		err = fmt.Errorf("%w: embedder returned %d vectors for %d sentences", models.ErrEngine, len(vectors), len(sentences))
	}
	if err != nil {
		kind, err := classify(ctx, err)
		s.logger.Warn("embedding failed", zap.String("collection", s.collection), zap.Error(err))
		return insertFailure(kind, err)
	}

	batch := make([]models.NewRecord, len(sentences))
	for i, text := range sentences {
		batch[i] = models.NewRecord{Vector: vectors[i], Text: text}
	}
	n, err := s.store.Insert(ctx, s.collection, batch)
	if err != nil {
		kind, err := classify(ctx, err)
		s.logger.Warn("insert failed", zap.String("collection", s.collection), zap.String("kind", string(kind)), zap.Error(err))
		return insertFailure(kind, err)
	}
	s.logger.Info("documents added", zap.String("collection", s.collection), zap.Int("count", n))
	return models.InsertOutcome{
		Success: true,
		Count:   n,
		Message: fmt.Sprintf("%d sentences inserted", n),
	}
}

func validateSentences(sentences []string) error {
	if len(sentences) == 0 {
		return fmt.Errorf("%w: sentence list is empty", models.ErrValidation)
	}
	for i, text := range sentences {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: sentence %d is blank", models.ErrValidation, i)
		}
	}
	return nil
}

func insertFailure(kind models.ErrorKind, err error) models.InsertOutcome {
	return models.InsertOutcome{Message: err.Error(), Kind: kind, Err: err}
}

// SearchRequest is a query with optional per-call settings.
type SearchRequest struct {
	Query string
	// K is the number of matches; <= 0 uses the configured default.
	K int
	// NProbe overrides the configured number of IVF partitions scanned; <= 0 keeps it.
	NProbe int
}

// Search returns the k sentences nearest to query. k <= 0 uses the configured default.
func (s *Service) Search(ctx context.Context, query string, k int) models.SearchOutcome {
	return s.Query(ctx, SearchRequest{Query: query, K: k})
}

// Query runs req against the collection.
func (s *Service) Query(ctx context.Context, req SearchRequest) (out models.SearchOutcome) {
	out.Query = req.Query
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during search", zap.Any("panic", r))
			err := fmt.Errorf("%w: panic: %v", models.ErrEngine, r)
			out = models.SearchOutcome{Query: req.Query, Kind: models.KindEngine, Err: err}
		}
	}()

	if strings.TrimSpace(req.Query) == "" {
		return searchFailure(req.Query, models.KindValidation, fmt.Errorf("%w: query is empty", models.ErrValidation))
	}
	k := req.K
	if k <= 0 {
		k = s.defaultK
	}
	if k > s.maxK {
		k = s.maxK
	}
	nprobe := req.NProbe
	if nprobe <= 0 {
		nprobe = s.nprobe
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		kind, err := classify(ctx, err)
		s.logger.Warn("query embedding failed", zap.String("collection", s.collection), zap.Error(err))
		return searchFailure(req.Query, kind, err)
	}
	hits, err := s.store.Search(ctx, s.collection, vec, models.SearchParams{K: k, NProbe: nprobe})
	if err != nil {
		kind, err := classify(ctx, err)
		s.logger.Debug("search failed", zap.String("collection", s.collection), zap.String("kind", string(kind)), zap.Error(err))
		return searchFailure(req.Query, kind, err)
	}

	matches := make([]models.Match, len(hits))
	for i, h := range hits {
		matches[i] = models.Match{Text: h.Text, Score: h.Score}
	}
	return models.SearchOutcome{Query: req.Query, Matches: matches}
}

func searchFailure(query string, kind models.ErrorKind, err error) models.SearchOutcome {
	return models.SearchOutcome{Query: query, Kind: kind, Err: err}
}

// classify maps err to the kind reported to callers. A deadline on the call context is a
// timeout whatever the failing layer reported, and a model failure after startup is an
// engine failure.
func classify(ctx context.Context, err error) (models.ErrorKind, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		if !errors.Is(err, models.ErrTimeout) {
			err = fmt.Errorf("%w: %w", models.ErrTimeout, err)
		}
		return models.KindTimeout, err
	}
	kind := models.KindOf(err)
	if kind == models.KindModel {
		kind = models.KindEngine
	}
	return kind, err
}

// Stats summarizes the service's collection.
func (s *Service) Stats(ctx context.Context) (models.CollectionStats, error) {
	return s.store.Stats(ctx, s.collection)
}

// Drop deletes the service's collection and its records.
func (s *Service) Drop(ctx context.Context) error {
	return s.store.Drop(ctx, s.collection)
}

// BuildIndex rebuilds the collection's index with params. When wait is true it blocks until
// the build finishes or ctx is done; otherwise it returns as soon as the build has started.
func (s *Service) BuildIndex(ctx context.Context, params models.IndexParams, wait bool) (*collection.BuildTask, error) {
	task, err := s.store.BuildIndex(ctx, s.collection, params)
	if err != nil {
		return nil, err
	}
	if !wait {
		return task, nil
	}
	started := time.Now()
	if err := task.Wait(ctx); err != nil {
		return task, err
	}
	s.logger.Info("index ready",
		zap.String("collection", s.collection),
		zap.String("metric", string(task.Params.Metric)),
		zap.String("index_type", string(task.Params.IndexType)),
		zap.Duration("took", time.Since(started)))
	return task, nil
}

// EnsureIndex builds an index with params and waits for it unless the collection already
// serves one with the same metric, type and partition count. An IVF index holding at least
// nlist records with fewer trained partitions is rebuilt.
func (s *Service) EnsureIndex(ctx context.Context, params models.IndexParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	if stats.Index != nil && sameIndex(*stats.Index, params) && !undertrained(stats) {
		s.logger.Debug("index up to date", zap.String("collection", s.collection))
		return nil
	}
	_, err = s.BuildIndex(ctx, params, true)
	return err
}

func undertrained(stats models.CollectionStats) bool {
	if stats.Index == nil || stats.Index.IndexType != models.IndexIVFFlat {
		return false
	}
	return stats.Records >= stats.Index.NList && stats.Partitions < stats.Index.NList
}

func sameIndex(a, b models.IndexParams) bool {
	if a.Metric != b.Metric || a.IndexType != b.IndexType {
		return false
	}
	return a.IndexType != models.IndexIVFFlat || a.NList == b.NList
}
