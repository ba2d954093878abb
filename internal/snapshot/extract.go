// Package snapshot reads the key metrics table of a quote page into a Record.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"snapshotfetcher/internal/fetcher"
)

const (
	// DefaultSelector matches the financial snapshot table on quote pages.
	DefaultSelector = "table.snapshot-table2"

	// MsgTableNotFound is reported when the page has no snapshot table.
	MsgTableNotFound = "Data table not found"
)

// Extractor turns quote page HTML into Records.
type Extractor struct {
	Selector string
}

// NewExtractor returns an Extractor for selector, or the default selector
// when it is empty.
func NewExtractor(selector string) *Extractor {
	if selector == "" {
		selector = DefaultSelector
	}
	return &Extractor{Selector: selector}
}

// Extract parses body and always returns a Record; failures become error
// Records.
func (e *Extractor) Extract(body, ticker string) Record {
	rec, err := e.Parse(body, ticker)
	if err != nil {
		return ErrorRecord(ticker, err.Message)
	}
	return rec
}

// FromResult builds the Record for a fetch result. The returned error is
// non-nil whenever the Record is an error marker.
func (e *Extractor) FromResult(res fetcher.Result) (Record, *fetcher.FetchError) {
	if !res.OK() {
		return ErrorRecord(res.Ticker, res.Err.Message), res.Err
	}

	rec, err := e.Parse(res.Body, res.Ticker)
	if err != nil {
		return ErrorRecord(res.Ticker, err.Message), err
	}
	return rec, nil
}

// Parse locates the snapshot table and pairs its cells: even cells are
// labels, odd cells the values that follow them. A trailing unpaired cell is
// dropped, as are pairs with an empty or reserved label.
func (e *Extractor) Parse(body, ticker string) (rec Record, perr *fetcher.FetchError) {
	defer func() {
		if r := recover(); r != nil {
			rec, perr = Record{}, fetcher.NewParseError(fmt.Sprint(r), nil)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Record{}, fetcher.NewParseError(err.Error(), err)
	}

	table := doc.Find(e.Selector).First()
	if table.Length() == 0 {
		return Record{}, fetcher.NewParseError(MsgTableNotFound, nil)
	}

	cells := table.Find("td").Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})

	rec = NewRecord(ticker)
	for i := 0; i+1 < len(cells); i += 2 {
		label := cells[i]
		if label == "" || label == KeyTicker || label == KeyError {
			continue
		}
		rec.set(label, cells[i+1])
	}

	return rec, nil
}

// Extract parses body with the default selector.
func Extract(body, ticker string) Record {
	return NewExtractor("").Extract(body, ticker)
}
