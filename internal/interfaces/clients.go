// Package interfaces defines service contracts for jqfeed
package interfaces

import (
	"context"
	"time"

	"github.com/tkasuya/jqfeed/internal/models"
)

// JQuantsClient provides access to the J-Quants API. Implementations hold the
// bearer token obtained at construction and reuse it for every call.
type JQuantsClient interface {
	// TradingCalendar returns the ordered trading (non-holiday) days within
	// [from, to] inclusive, per the calendar endpoint's holiday flag.
	TradingCalendar(ctx context.Context, from, to time.Time) ([]time.Time, error)

	// FetchDailyQuotes drains every page of daily quotes for one date,
	// routing each page to the sink before requesting the next.
	// Returns the number of records written.
	FetchDailyQuotes(ctx context.Context, date time.Time, sink RecordSink) (int, error)

	// FetchStatements drains every page of financial statements for one date.
	FetchStatements(ctx context.Context, date time.Time, sink RecordSink) (int, error)
}

// RecordSink receives one page of records and must make them durable before
// returning. The fetcher requests the next page only after the sink returns,
// so at most one in-flight page is lost on crash.
type RecordSink interface {
	WritePage(ctx context.Context, records []*models.Record) error
}
