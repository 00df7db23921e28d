package collection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/models"
	"github.com/hyperjump/vecsearch/internal/storage"
	"github.com/hyperjump/vecsearch/internal/vector"
)

// errSuperseded is the result of a build replaced by a newer one.
var errSuperseded = errors.New("index build superseded by a newer build")

// BuildTask is a running index build.
type BuildTask struct {
	Collection string
	Params     models.IndexParams

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Wait blocks until the build finishes or ctx is done.
func (t *BuildTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the build. The previous index, if any, stays in service.
func (t *BuildTask) Cancel() {
	t.cancel()
}

// Done is closed when the build has finished.
func (t *BuildTask) Done() <-chan struct{} {
	return t.done
}

// Err returns the build result once Done is closed.
func (t *BuildTask) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// BuildIndex starts an asynchronous build of a new index over the collection's records.
// The collection state becomes building; readers keep using the previous index until the new
// one is swapped in. A build started while another runs cancels the older one.
func (s *Store) BuildIndex(ctx context.Context, name string, params models.IndexParams) (*BuildTask, error) {
	const op = "build_index"
	if err := params.Validate(); err != nil {
		return nil, models.NewOpError(op, name, err)
	}
	c, err := s.get(ctx, name)
	if err != nil {
		return nil, models.NewOpError(op, name, err)
	}

	buildCtx, cancel := context.WithCancel(context.Background())
	task := &BuildTask{
		Collection: name,
		Params:     params,
		ctx:        buildCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	c.mu.Lock()
	if c.build != nil {
		c.build.Cancel()
	}
	c.build = task
	c.state = models.IndexBuilding
	entries := entriesOf(c.records)
	covered := c.nextSeq - 1
	c.mu.Unlock()

	s.logger.Info("index build started",
		zap.String("collection", name),
		zap.String("metric", string(params.Metric)),
		zap.String("index_type", string(params.IndexType)),
		zap.Int("nlist", params.NList),
		zap.Int("records", len(entries)))

	go s.runBuild(c, task, entries, covered)
	return task, nil
}

func (s *Store) runBuild(c *collection, task *BuildTask, entries []vector.Entry, covered int64) {
	start := time.Now()
	idx, err := vector.NewIndex(task.Params, c.schema.Dimension)
	if err == nil {
		err = idx.Build(task.ctx, entries)
	}
	err = s.finishBuild(c, task, idx, covered, err)
	task.err = err
	task.cancel()
	close(task.done)

	if err != nil {
		s.logger.Warn("index build failed",
			zap.String("collection", c.schema.Name), zap.Error(err))
		return
	}
	s.logger.Info("index build finished",
		zap.String("collection", c.schema.Name),
		zap.Int("size", idx.Size()),
		zap.Duration("took", time.Since(start)))
}

// finishBuild swaps the new index in and persists it. Records inserted while training are
// added before the swap so the published index covers every resident record.
func (s *Store) finishBuild(c *collection, task *BuildTask, idx vector.Index, covered int64, buildErr error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	if c.build != task {
		c.mu.Unlock()
		if buildErr != nil {
			return buildErr
		}
		return errSuperseded
	}
	c.build = nil
	if buildErr == nil {
		buildErr = task.ctx.Err()
	}
	if buildErr == nil {
		var tail []vector.Entry
		for _, r := range c.records {
			if r.Seq > covered {
				tail = append(tail, vector.Entry{Seq: r.Seq, Vector: r.Vector})
			}
		}
		buildErr = idx.Add(tail)
	}
	if buildErr != nil {
		c.state = models.IndexFailed
		c.mu.Unlock()
		return models.NewOpError("build_index", c.schema.Name, fmt.Errorf("%w: %v", models.ErrEngine, buildErr))
	}

	c.index = idx
	c.state = models.IndexReady
	seq := c.nextSeq - 1
	data, err := idx.MarshalBinary()
	c.mu.Unlock()

	if err == nil {
		// writeMu is still held, so no insert lands between the snapshot and its save
		err = s.backend.SaveIndex(context.Background(), c.schema.Name, storage.IndexSnapshot{
			Params: idx.Params(),
			Seq:    seq,
			Data:   data,
		})
	}
	if err != nil {
		s.logger.Error("index persist failed", zap.String("collection", c.schema.Name), zap.Error(err))
	}
	return nil
}
