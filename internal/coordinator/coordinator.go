package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"snapshotfetcher/internal/fetcher"
	"snapshotfetcher/internal/ratelimit"
	"snapshotfetcher/internal/snapshot"
	"snapshotfetcher/internal/table"
)

// Progress is reported after every ticker has been fetched and extracted.
type Progress struct {
	Index  int // 1-based position in the batch
	Total  int
	Chunk  int // 1-based chunk number
	Chunks int
	Ticker string
	Record snapshot.Record

	// Kind is set when Record is an error marker.
	Kind fetcher.ErrorType
}

// ProgressFunc receives progress updates. It runs on the pipeline's goroutine
// and must not block for long.
type ProgressFunc func(Progress)

// Coordinator runs a batch through fetch, extract and aggregate, one ticker
// at a time.
type Coordinator struct {
	fetcher   fetcher.Fetcher
	extractor *snapshot.Extractor
	throttle  ratelimit.Throttle
	logger    *slog.Logger
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithExtractor replaces the default snapshot extractor.
func WithExtractor(e *snapshot.Extractor) Option {
	return func(c *Coordinator) { c.extractor = e }
}

// WithLogger sets the logger used for per-ticker messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator
func New(f fetcher.Fetcher, throttle ratelimit.Throttle, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher:   f,
		extractor: snapshot.NewExtractor(""),
		throttle:  throttle,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run processes tickers in order and returns the aggregated table.
// Per-ticker failures become error rows and never stop the batch. If ctx is
// cancelled the rows collected so far are returned along with ctx.Err().
func (c *Coordinator) Run(ctx context.Context, tickers []string, progress ProgressFunc) (*table.Table, error) {
	records, err := c.Collect(ctx, tickers, progress)
	return table.Aggregate(records), err
}

// Collect is Run without the aggregation step.
func (c *Coordinator) Collect(ctx context.Context, tickers []string, progress ProgressFunc) ([]snapshot.Record, error) {
	if c.fetcher == nil {
		return nil, fmt.Errorf("no fetcher configured")
	}

	chunks := c.throttle.Chunks(tickers)
	records := make([]snapshot.Record, 0, len(tickers))
	index := 0

	for ci, chunk := range chunks {
		if ci > 0 {
			c.logger.Info("pausing between chunks",
				"chunk", ci+1,
				"chunks", len(chunks),
				"pause", c.throttle.ChunkPause)
			if err := c.throttle.BetweenChunks(ctx); err != nil {
				return records, err
			}
		}

		for _, ticker := range chunk {
			if err := ctx.Err(); err != nil {
				return records, err
			}

			res := c.fetcher.Fetch(ctx, ticker)
			// A fetch cut short by cancellation is not a ticker failure.
			if err := ctx.Err(); err != nil {
				return records, err
			}

			index++
			rec, ferr := c.extractor.FromResult(res)
			records = append(records, rec)

			p := Progress{
				Index:  index,
				Total:  len(tickers),
				Chunk:  ci + 1,
				Chunks: len(chunks),
				Ticker: ticker,
				Record: rec,
			}
			if ferr != nil {
				p.Kind = ferr.Type
				c.logger.Warn("ticker failed",
					"ticker", ticker,
					"kind", ferr.Type,
					"error", ferr.Message)
			} else {
				c.logger.Debug("ticker fetched", "ticker", ticker, "fields", rec.Len()-1)
			}

			if progress != nil {
				progress(p)
			}

			if index < len(tickers) {
				if err := c.throttle.AfterRequest(ctx); err != nil {
					return records, err
				}
			}
		}
	}

	return records, nil
}
