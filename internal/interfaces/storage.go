// Package interfaces defines service contracts for jqfeed
package interfaces

import (
	"context"
	"time"

	"github.com/tkasuya/jqfeed/internal/models"
)

// Store persists fetched records and ingestion bookkeeping for all datasets.
// The archive table is the source of truth for "has this date been ingested";
// the normalized table is a derived projection keyed by the same pair.
type Store interface {
	// PageWriter returns a sink that dual-writes each record of a page into
	// the dataset's archive and normalized tables within one transaction.
	PageWriter(d *models.Dataset) RecordSink

	// Watermark returns the maximum date present in the dataset's archive,
	// or ok=false when the archive is empty.
	Watermark(ctx context.Context, d *models.Dataset) (time.Time, bool, error)

	// RecordFailure inserts a ledger entry with retry_count=0, or increments
	// the count and overwrites last_error when the date is already present.
	RecordFailure(ctx context.Context, d *models.Dataset, date time.Time, cause error) error

	// RecordSuccess deletes the ledger entry if present.
	RecordSuccess(ctx context.Context, d *models.Dataset, date time.Time) error

	// PendingRetries returns dates with retry_count < maxRetry, ordered by
	// ascending retry_count then ascending date. Entries at the cutoff stay
	// in the ledger as an audit trail but are never returned.
	PendingRetries(ctx context.Context, d *models.Dataset, maxRetry int) ([]time.Time, error)

	// LedgerEntry returns the ledger row for a date, or nil when absent.
	LedgerEntry(ctx context.Context, d *models.Dataset, date time.Time) (*models.RetryEntry, error)

	Close() error
}

// ScreenStore exposes the read-side queries used by the screening engine.
type ScreenStore interface {
	// LatestQuoteDate returns the most recent date in the normalized quote
	// table, or ok=false when no quotes are stored.
	LatestQuoteDate(ctx context.Context) (string, bool, error)

	// ScreenRows joins the latest financial record per code with the given
	// date's price record and applies the fixed numeric filters in SQL.
	ScreenRows(ctx context.Context, date string, f ScreenFilters) ([]*models.ScreenRow, error)
}

// ScreenFilters holds the numeric thresholds applied by ScreenRows.
type ScreenFilters struct {
	MinVolume      float64
	MinROE         float64
	SalesRetention float64
	MinPER         float64
	MaxPER         float64
}
