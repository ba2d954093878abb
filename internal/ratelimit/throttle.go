package ratelimit

import (
	"context"
	"time"
)

const (
	DefaultChunkSize    = 100
	DefaultRequestDelay = 1 * time.Second
	DefaultChunkPause   = 5 * time.Second
)

// Throttle paces a sequential batch: a fixed delay after every request and a
// longer pause between fixed-size chunks. Both run unconditionally, whatever
// the outcome of the request that preceded them.
type Throttle struct {
	ChunkSize    int
	RequestDelay time.Duration
	ChunkPause   time.Duration
}

// DefaultThrottle returns the production pacing.
func DefaultThrottle() Throttle {
	return Throttle{
		ChunkSize:    DefaultChunkSize,
		RequestDelay: DefaultRequestDelay,
		ChunkPause:   DefaultChunkPause,
	}
}

// Chunks splits tickers into consecutive groups of at most ChunkSize,
// preserving order. A non-positive ChunkSize yields a single chunk.
func (t Throttle) Chunks(tickers []string) [][]string {
	if len(tickers) == 0 {
		return nil
	}

	size := t.ChunkSize
	if size <= 0 {
		size = len(tickers)
	}

	chunks := make([][]string, 0, (len(tickers)+size-1)/size)
	for start := 0; start < len(tickers); start += size {
		end := min(start+size, len(tickers))
		chunks = append(chunks, tickers[start:end])
	}
	return chunks
}

// AfterRequest sleeps for RequestDelay.
func (t Throttle) AfterRequest(ctx context.Context) error {
	return Sleep(ctx, t.RequestDelay)
}

// BetweenChunks sleeps for ChunkPause.
func (t Throttle) BetweenChunks(ctx context.Context) error {
	return Sleep(ctx, t.ChunkPause)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
