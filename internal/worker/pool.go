package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Chunk is a half-open index range [Start, End).
type Chunk struct {
	Start, End int
}

// Len returns the number of indices in the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Split partitions [0, n) into at most workers contiguous, disjoint chunks
// whose sizes differ by at most one.
func Split(n, workers int) []Chunk {
	if n <= 0 {
		return nil
	}
	workers = max(1, min(workers, n))

	chunks := make([]Chunk, 0, workers)
	size, extra := n/workers, n%workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + size
		if i < extra {
			end++
		}
		chunks = append(chunks, Chunk{Start: start, End: end})
		start = end
	}
	return chunks
}

// ForEachChunk splits [0, n) into one chunk per worker and runs fn on every
// chunk concurrently, returning once all of them have finished. fn receives
// the chunk's position in the split so callers can keep per-worker partial
// results without locking. The first error cancels ctx for the remaining
// chunks and is returned.
func ForEachChunk(ctx context.Context, n, workers int, fn func(ctx context.Context, worker int, c Chunk) error) error {
	chunks := Split(n, workers)
	if len(chunks) == 1 {
		return fn(ctx, 0, chunks[0])
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i, c)
		})
	}
	return g.Wait()
}
