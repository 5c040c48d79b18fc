// Package interfaces defines service contracts for jqfeed
package interfaces

import (
	"context"

	"github.com/tkasuya/jqfeed/internal/models"
)

// IngestService sequences a full ingestion run: ledger retries first, then
// forward ingestion from each dataset's watermark.
type IngestService interface {
	// Run executes the quotes phase then the financials phase. A calendar
	// failure is fatal for the quotes phase only; per-date failures are
	// recorded in the ledger and do not abort the run.
	Run(ctx context.Context) error

	// RunQuotes executes the daily-quotes phase alone.
	RunQuotes(ctx context.Context) error

	// RunFinancials executes the financial-statements phase alone.
	RunFinancials(ctx context.Context) error
}

// ScreenService ranks stored entities by the composite score.
type ScreenService interface {
	// Screen filters the latest stored data and returns candidates ordered
	// by descending score, capped at limit (0 = configured default).
	Screen(ctx context.Context, limit int) ([]*models.Candidate, error)
}
