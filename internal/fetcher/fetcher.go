package fetcher

import "context"

// Fetcher retrieves the quote page for a single ticker.
// Implementations never return a Go error: every failure, including
// exhausted retries, is reported inside the Result.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) Result
}
