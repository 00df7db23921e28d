// Package ingest reads document files, splits them into sentences and adds the sentences
// through the service in batches. It backs the inbox watcher and the ingest command.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/extract"
	"github.com/hyperjump/vecsearch/internal/fileid"
	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/pkg/utils"
)

const (
	defaultBatchSize = 64
	defaultMaxLen    = 512
)

// Adder stores sentences. *service.Service implements it.
type Adder interface {
	Add(ctx context.Context, sentences []string) models.InsertOutcome
}

// Result describes one ingested file.
type Result struct {
	Path string `json:"path"`
	// Sentences is the number of sentences read from the file.
	Sentences int `json:"sentences"`
	Added     int `json:"added"`
	// Skipped counts sentences already stored from this file by this process.
	Skipped int `json:"skipped"`
}

// Ingestor turns files into stored sentences. Files are processed one at a time.
type Ingestor struct {
	adder     Adder
	extractor *extract.Extractor
	maxLen    int
	batchSize int
	logger    *zap.Logger

	fileMu sync.Mutex
	seen   map[string]struct{}
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Ingestor) { i.logger = l }
}

// WithMaxTextLength sets the longest sentence stored; longer ones are cut at word boundaries.
func WithMaxTextLength(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.maxLen = n
		}
	}
}

// WithBatchSize sets how many sentences go into one Add call.
func WithBatchSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// New returns an Ingestor adding through adder.
func New(adder Adder, opts ...Option) *Ingestor {
	i := &Ingestor{
		adder:     adder,
		extractor: extract.NewExtractor(),
		maxLen:    defaultMaxLen,
		batchSize: defaultBatchSize,
		logger:    zap.NewNop(),
		seen:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ReadSentences extracts the file's text and splits it into sentences.
func (i *Ingestor) ReadSentences(path string) ([]string, error) {
	text, err := i.extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	return utils.SplitSentences(text, i.maxLen), nil
}

// IngestFile adds the sentences of path that this Ingestor has not stored yet. Each batch is
// atomic; on error the batches before it stay stored. progress, if set, is called with the
// number of sentences added by each batch.
func (i *Ingestor) IngestFile(ctx context.Context, path string, progress func(added int)) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{Path: path}, err
	}
	res := Result{Path: abs}
	sentences, err := i.ReadSentences(abs)
	if err != nil {
		return res, err
	}
	res.Sentences = len(sentences)

	i.fileMu.Lock()
	defer i.fileMu.Unlock()

	fid := fileid.FileID(abs)
	var fresh, keys []string
	batchKeys := make(map[string]struct{})
	for _, s := range sentences {
		key := fileid.SentenceID(fid, s)
		if _, dup := i.seen[key]; dup {
			res.Skipped++
			continue
		}
		if _, dup := batchKeys[key]; dup {
			res.Skipped++
			continue
		}
		batchKeys[key] = struct{}{}
		fresh = append(fresh, s)
		keys = append(keys, key)
	}

	for start := 0; start < len(fresh); start += i.batchSize {
		end := min(start+i.batchSize, len(fresh))
		out := i.adder.Add(ctx, fresh[start:end])
		if !out.Success {
			return res, fmt.Errorf("add sentences %d-%d of %s: %w", start, end-1, abs, outcomeErr(out))
		}
		for _, key := range keys[start:end] {
			i.seen[key] = struct{}{}
		}
		res.Added += out.Count
		if progress != nil {
			progress(out.Count)
		}
	}
	return res, nil
}

func outcomeErr(out models.InsertOutcome) error {
	if out.Err != nil {
		return out.Err
	}
	return fmt.Errorf("%w: %s", models.ErrEngine, out.Message)
}

// Handler returns a callback for the inbox watcher that ingests each reported file under ctx
// and logs the result.
func (i *Ingestor) Handler(ctx context.Context) func(path string) {
	return func(path string) {
		res, err := i.IngestFile(ctx, path, nil)
		if err != nil {
			i.logger.Error("inbox ingest failed", zap.String("path", path), zap.Error(err))
			return
		}
		i.logger.Info("inbox file ingested",
			zap.String("path", res.Path),
			zap.Int("sentences", res.Sentences),
			zap.Int("added", res.Added),
			zap.Int("skipped", res.Skipped))
	}
}
