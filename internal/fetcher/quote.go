package fetcher

import (
	"context"

	"resty.dev/v3"
)

// QuotePath is the quote page path on the remote service.
const QuotePath = "/quote.ashx"

// Limiter gates outbound requests. *rate.Limiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// QuoteFetcher downloads quote.ashx?t=<TICKER> pages.
type QuoteFetcher struct {
	client  *resty.Client
	limiter Limiter
}

// NewQuoteFetcher creates a quote page fetcher. limiter may be nil.
func NewQuoteFetcher(opts Options, limiter Limiter) *QuoteFetcher {
	return &QuoteFetcher{
		client:  NewHTTPClient(opts),
		limiter: limiter,
	}
}

// Fetch retrieves the quote page for ticker.
func (f *QuoteFetcher) Fetch(ctx context.Context, ticker string) Result {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return Failure(ticker, NewNetworkError(err))
		}
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("t", ticker).
		Get(QuotePath)

	if err != nil {
		return Failure(ticker, NewNetworkError(err))
	}

	if !resp.IsSuccess() {
		return Failure(ticker, NewHTTPError(resp.StatusCode()))
	}

	return Success(ticker, resp.String())
}
