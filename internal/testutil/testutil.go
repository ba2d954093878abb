package testutil

import (
	"context"
	"html"
	"io"
	"log/slog"
	"strings"
	"sync"

	"snapshotfetcher/internal/fetcher"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing.
// It records the tickers it was asked for, in order.
type MockFetcher struct {
	FetchFunc func(ctx context.Context, ticker string) fetcher.Result

	mu    sync.Mutex
	calls []string
}

// Fetch implements the Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context, ticker string) fetcher.Result {
	m.mu.Lock()
	m.calls = append(m.calls, ticker)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker)
	}
	return fetcher.Success(ticker, SnapshotPage())
}

// Calls returns the tickers fetched so far.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// NewMockFetcher creates a mock fetcher serving fixed pages per ticker.
// Tickers missing from pages fail with HTTP 404.
func NewMockFetcher(pages map[string]string) *MockFetcher {
	return &MockFetcher{
		FetchFunc: func(ctx context.Context, ticker string) fetcher.Result {
			page, ok := pages[ticker]
			if !ok {
				return fetcher.Failure(ticker, fetcher.NewHTTPError(404))
			}
			return fetcher.Success(ticker, page)
		},
	}
}

// SnapshotPage renders a quote page whose snapshot table holds cells in the
// given order, four cells to a row like the live page.
func SnapshotPage(cells ...string) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>quote</title></head><body>`)
	b.WriteString(`<table class="fullview-title"><tr><td>Header</td></tr></table>`)
	b.WriteString(`<table width="100%" class="snapshot-table2 screener_snapshot-table-body">`)

	for i, cell := range cells {
		if i%4 == 0 {
			if i > 0 {
				b.WriteString(`</tr>`)
			}
			b.WriteString(`<tr class="table-dark-row">`)
		}
		if i%2 == 0 {
			b.WriteString(`<td class="snapshot-td2-cp" align="left">`)
		} else {
			b.WriteString(`<td class="snapshot-td2" align="left"><b> `)
		}
		b.WriteString(html.EscapeString(cell))
		if i%2 == 0 {
			b.WriteString(`</td>`)
		} else {
			b.WriteString(` </b></td>`)
		}
	}
	if len(cells) > 0 {
		b.WriteString(`</tr>`)
	}

	b.WriteString(`</table></body></html>`)
	return b.String()
}

// PageWithoutTable renders a quote page lacking the snapshot table.
func PageWithoutTable() string {
	return `<html><body><p>Ticker not found</p><table class="other"><tr><td>P/E</td><td>1</td></tr></table></body></html>`
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
