package plugin

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
)

// FilePool is a fixed-size semaphore-bounded worker pool dedicated to
// blocking filesystem reads, so a JSONDataPlugin's Execute never stalls the
// dispatcher's goroutine on disk I/O ("Filesystem I/O in plugins: blocking;
// isolate on a worker pool, never on the reactor thread"). Grounded on the
// semaphore-plus-waitgroup shape of
// _examples/osakka-mcpeg/pkg/concurrency.WorkerPool, trimmed to the
// single-shot request/response case (no queueing, no task interface) since a
// file read has no need for a general Task abstraction.
type FilePool struct {
	sem chan struct{}
}

// NewFilePool creates a pool that runs at most size reads concurrently.
func NewFilePool(size int) *FilePool {
	if size <= 0 {
		size = 4
	}
	return &FilePool{sem: make(chan struct{}, size)}
}

type fileReadResult struct {
	data []byte
	err  error
}

// ReadFile reads path on a pool goroutine, blocking the caller until the
// read completes, the pool is saturated and ctx is canceled, or ctx expires.
func (p *FilePool) ReadFile(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p.sem <- struct{}{}:
	}

	resultCh := make(chan fileReadResult, 1)
	go func() {
		defer func() { <-p.sem }()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", path).Msg("file pool worker panicked")
			}
		}()
		data, err := os.ReadFile(path)
		resultCh <- fileReadResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.data, res.err
	}
}
