package fetcher

// Result is the outcome of fetching one ticker's quote page: either the page
// body or a FetchError, never both. Results are created once per ticker and
// not modified afterwards.
type Result struct {
	// Ticker is the symbol the page was requested for
	Ticker string

	// Body is the HTML document. Only meaningful when Err is nil.
	Body string

	// Err describes why the fetch failed.
	Err *FetchError
}

// Success builds a successful Result.
func Success(ticker, body string) Result {
	return Result{Ticker: ticker, Body: body}
}

// Failure builds a failed Result.
func Failure(ticker string, err *FetchError) Result {
	return Result{Ticker: ticker, Err: err}
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}
