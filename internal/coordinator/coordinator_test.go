package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snapshotfetcher/internal/fetcher"
	"snapshotfetcher/internal/ratelimit"
	"snapshotfetcher/internal/snapshot"
	"snapshotfetcher/internal/testutil"
)

func fastThrottle(chunkSize int) ratelimit.Throttle {
	return ratelimit.Throttle{ChunkSize: chunkSize}
}

func TestNew(t *testing.T) {
	mock := testutil.NewMockFetcher(nil)

	coord := New(mock, fastThrottle(10))
	require.NotNil(t, coord)
	assert.Equal(t, mock, coord.fetcher)
	assert.Equal(t, snapshot.DefaultSelector, coord.extractor.Selector)
}

func TestRun_MixedOutcomes(t *testing.T) {
	mock := testutil.NewMockFetcher(map[string]string{
		"AAPL": testutil.SnapshotPage("P/E", "29.1", "EPS", "6.42"),
		"GONE": testutil.PageWithoutTable(),
	})

	coord := New(mock, fastThrottle(10))
	tbl, err := coord.Run(context.Background(), []string{"AAPL", "BADTICKER", "GONE"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ticker", "P/E", "EPS", "Error"}, tbl.Columns)
	assert.Equal(t, [][]string{
		{"AAPL", "29.1", "6.42", ""},
		{"BADTICKER", "", "", "HTTP 404"},
		{"GONE", "", "", "Data table not found"},
	}, tbl.Rows)
	assert.Equal(t, []string{"AAPL", "BADTICKER", "GONE"}, mock.Calls())
}

func TestRun_ProgressReports(t *testing.T) {
	mock := testutil.NewMockFetcher(map[string]string{
		"A": testutil.SnapshotPage("x", "1"),
		"B": testutil.SnapshotPage("x", "2"),
		"D": testutil.SnapshotPage("x", "4"),
		"E": testutil.SnapshotPage("x", "5"),
	})

	var got []Progress
	coord := New(mock, fastThrottle(2))
	_, err := coord.Run(context.Background(), []string{"A", "B", "C", "D", "E"}, func(p Progress) {
		got = append(got, p)
	})
	require.NoError(t, err)

	require.Len(t, got, 5)
	for i, p := range got {
		assert.Equal(t, i+1, p.Index)
		assert.Equal(t, 5, p.Total)
		assert.Equal(t, 3, p.Chunks)
		assert.Equal(t, i/2+1, p.Chunk)
		assert.Equal(t, p.Ticker, p.Record.Ticker())
	}

	assert.Equal(t, fetcher.ErrorTypeHTTP, got[2].Kind)
	assert.True(t, got[2].Record.Failed())
	assert.Empty(t, got[0].Kind)
}

func TestRun_Empty(t *testing.T) {
	mock := testutil.NewMockFetcher(nil)

	tbl, err := New(mock, fastThrottle(10)).Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, mock.Calls())
}

func TestRun_NoFetcher(t *testing.T) {
	_, err := New(nil, fastThrottle(10)).Run(context.Background(), []string{"A"}, nil)
	require.Error(t, err)
	assert.Equal(t, "no fetcher configured", err.Error())
}

func TestRun_AppliesDelays(t *testing.T) {
	mock := testutil.NewMockFetcher(nil)
	throttle := ratelimit.Throttle{
		ChunkSize:    2,
		RequestDelay: 10 * time.Millisecond,
		ChunkPause:   40 * time.Millisecond,
	}

	start := time.Now()
	_, err := New(mock, throttle).Run(context.Background(), []string{"A", "B", "C"}, nil)
	require.NoError(t, err)

	// two request delays (none after the last ticker) and one chunk pause
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRun_ContextCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) fetcher.Result {
			return fetcher.Success(ticker, testutil.SnapshotPage("x", ticker))
		},
	}

	coord := New(mock, fastThrottle(10))
	tbl, err := coord.Run(ctx, []string{"A", "B", "C", "D"}, func(p Progress) {
		if p.Index == 2 {
			cancel()
		}
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"A", "B"}, mock.Calls())
}

func TestRun_CancelledDuringFinalFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) fetcher.Result {
			if ticker == "B" {
				cancel()
				return fetcher.Failure(ticker, fetcher.NewNetworkError(ctx.Err()))
			}
			return fetcher.Success(ticker, testutil.SnapshotPage("P/E", "1"))
		},
	}

	var reported []string
	tbl, err := New(mock, fastThrottle(10)).Run(ctx, []string{"A", "B"}, func(p Progress) {
		reported = append(reported, p.Ticker)
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []string{"Ticker", "P/E"}, tbl.Columns)
	assert.Equal(t, []string{"A", "1"}, tbl.Rows[0])
	assert.Equal(t, []string{"A"}, reported)
}

func TestRun_CancelledMidBatchDropsInterruptedTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) fetcher.Result {
			if ticker == "B" {
				cancel()
				return fetcher.Failure(ticker, fetcher.NewNetworkError(ctx.Err()))
			}
			return fetcher.Success(ticker, testutil.SnapshotPage("P/E", "1"))
		},
	}

	tbl, err := New(mock, fastThrottle(10)).Run(ctx, []string{"A", "B", "C"}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, 0, tbl.Summarize().Failed)
	assert.Equal(t, []string{"A", "B"}, mock.Calls())
}

func TestRun_FetcherFailuresNeverAbort(t *testing.T) {
	mock := &testutil.MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) fetcher.Result {
			return fetcher.Failure(ticker, fetcher.NewNetworkError(errors.New("dial tcp: i/o timeout")))
		},
	}

	tbl, err := New(mock, fastThrottle(10)).Run(context.Background(), []string{"A", "B"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ticker", "Error"}, tbl.Columns)
	assert.Equal(t, [][]string{{"A", "dial tcp: i/o timeout"}, {"B", "dial tcp: i/o timeout"}}, tbl.Rows)
	assert.Equal(t, 2, tbl.Summarize().Failed)
}

func TestRun_CustomExtractor(t *testing.T) {
	mock := testutil.NewMockFetcher(map[string]string{
		"A": `<table id="m"><tr><td>k</td><td>v</td></tr></table>`,
	})

	coord := New(mock, fastThrottle(10), WithExtractor(snapshot.NewExtractor("#m")))
	tbl, err := coord.Run(context.Background(), []string{"A"}, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "v"}}, tbl.Rows)
}
