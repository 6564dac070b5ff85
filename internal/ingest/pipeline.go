// Package ingest turns one uploaded document into an extraction result:
// validate the name, buffer the payload, park it in a transient file, hand
// the path to the extraction engine, and always clean the file up.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/sync/semaphore"

	"github.com/MalithGihan/extract-service/internal/store"
	"github.com/MalithGihan/extract-service/pkg/types"
)

// Engine partitions the file at path into content elements, in document order.
type Engine interface {
	Partition(ctx context.Context, path string) ([]types.Element, error)
}

type Pipeline struct {
	engine Engine
	store  *store.FS
	pool   *semaphore.Weighted
	logger *log.Logger
}

type Option func(*Pipeline)

// WithWorkers bounds how many engine calls run at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.pool = semaphore.NewWeighted(int64(n))
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// DefaultWorkers mirrors a typical thread-pool default: NumCPU+4, capped at 32.
func DefaultWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

func New(engine Engine, st *store.FS, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: engine,
		store:  st,
		pool:   semaphore.NewWeighted(int64(DefaultWorkers())),
		logger: &log.DefaultLogger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Extract runs one upload through the pipeline. Rejections and engine failures
// are *ExtractionError; the transient file never outlives the call.
func (p *Pipeline) Extract(ctx context.Context, up Upload) (*types.ExtractionResult, error) {
	if err := checkExtension(up.Filename); err != nil {
		return nil, err
	}

	// Read failures are not the document's fault; they stay unclassified.
	payload, err := up.read()
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", up.Filename, err)
	}
	if len(payload) == 0 {
		return nil, emptyPayload(up.Filename)
	}

	path, err := p.store.Write(Suffix(up.Filename), payload)
	if err != nil {
		return nil, engineFailure(up.Filename, err)
	}
	defer p.store.Remove(path)

	start := time.Now()
	elements, err := p.partition(ctx, path)
	if err != nil {
		p.logger.Warn().Err(err).Str("filename", up.Filename).Msg("extraction failed")
		return nil, engineFailure(up.Filename, err)
	}
	if elements == nil {
		elements = []types.Element{}
	}

	p.logger.Debug().
		Str("filename", up.Filename).
		Int("bytes", len(payload)).
		Int("elements", len(elements)).
		Dur("duration", time.Since(start)).
		Msg("document extracted")

	return &types.ExtractionResult{Filename: up.Filename, Elements: elements}, nil
}

// partition waits for a pool slot, then calls the engine. Engine panics are
// turned into errors so one bad document cannot take the process down.
func (p *Pipeline) partition(ctx context.Context, path string) (elements []types.Element, err error) {
	if err := p.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.pool.Release(1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return p.engine.Partition(ctx, path)
}
