// Package ingest drives the incremental ingestion pipeline
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

const dateFormat = "2006-01-02"

// fetchFunc drains every page of one date into the sink.
type fetchFunc func(ctx context.Context, date time.Time, sink interfaces.RecordSink) (int, error)

// Service implements IngestService. Execution is fully sequential: one
// network call in flight, one storage connection, no parallel units.
type Service struct {
	store  interfaces.Store
	client interfaces.JQuantsClient
	config common.IngestConfig
	logger *common.Logger
}

// NewService creates a new ingest service
func NewService(store interfaces.Store, client interfaces.JQuantsClient, config common.IngestConfig, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		client: client,
		config: config,
		logger: logger,
	}
}

// Run executes the quotes phase then the financials phase. A failing phase
// does not prevent the other from running; both errors are reported.
func (s *Service) Run(ctx context.Context) error {
	runLogger := s.logger.WithRun(uuid.NewString())

	quotesErr := s.runQuotes(ctx, runLogger)
	if quotesErr != nil {
		runLogger.Error().Err(quotesErr).Msg("daily quotes phase failed")
	}

	financialsErr := s.runFinancials(ctx, runLogger)
	if financialsErr != nil {
		runLogger.Error().Err(financialsErr).Msg("financials phase failed")
	}

	return errors.Join(quotesErr, financialsErr)
}

// RunQuotes executes the daily-quotes phase alone.
func (s *Service) RunQuotes(ctx context.Context) error {
	return s.runQuotes(ctx, s.logger.WithRun(uuid.NewString()))
}

// RunFinancials executes the financial-statements phase alone.
func (s *Service) RunFinancials(ctx context.Context) error {
	return s.runFinancials(ctx, s.logger.WithRun(uuid.NewString()))
}

// runQuotes retries ledgered dates, then ingests forward over trading days.
// A calendar resolution failure is fatal for this phase: without the calendar
// there is no per-date fallback.
func (s *Service) runQuotes(ctx context.Context, logger *common.Logger) error {
	s.retryPhase(ctx, models.DailyQuotes, s.client.FetchDailyQuotes, logger)

	today := truncateDay(time.Now())
	start, err := s.resumeDate(ctx, models.DailyQuotes, today, s.config.QuoteLookbackDays)
	if err != nil {
		return err
	}
	if start.After(today) {
		logger.Debug().Str("dataset", models.DailyQuotes.Name).Msg("watermark already covers today")
		return nil
	}

	tradingDays, err := s.client.TradingCalendar(ctx, start, today)
	if err != nil {
		return err
	}
	logger.Info().
		Str("dataset", models.DailyQuotes.Name).
		Str("from", start.Format(dateFormat)).
		Str("to", today.Format(dateFormat)).
		Int("trading_days", len(tradingDays)).
		Msg("starting forward ingestion")

	for _, day := range tradingDays {
		s.ingestUnit(ctx, models.DailyQuotes, day, s.client.FetchDailyQuotes, logger)
	}
	return nil
}

// runFinancials retries ledgered dates, then ingests every calendar date from
// the resume point. Disclosures are not constrained to trading days, so the
// calendar is not consulted and a calendar outage cannot affect this phase.
func (s *Service) runFinancials(ctx context.Context, logger *common.Logger) error {
	s.retryPhase(ctx, models.Financials, s.client.FetchStatements, logger)

	today := truncateDay(time.Now())
	start, err := s.resumeDate(ctx, models.Financials, today, s.config.FinancialLookbackDays)
	if err != nil {
		return err
	}
	if start.After(today) {
		logger.Debug().Str("dataset", models.Financials.Name).Msg("watermark already covers today")
		return nil
	}

	logger.Info().
		Str("dataset", models.Financials.Name).
		Str("from", start.Format(dateFormat)).
		Str("to", today.Format(dateFormat)).
		Msg("starting forward ingestion")

	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		s.ingestUnit(ctx, models.Financials, day, s.client.FetchStatements, logger)
	}
	return nil
}

// retryPhase re-attempts every date still eligible in the dataset's ledger.
// Running before forward ingestion keeps a repeatedly failing date from ever
// blocking progress on new dates.
func (s *Service) retryPhase(ctx context.Context, d *models.Dataset, fetch fetchFunc, logger *common.Logger) {
	pending, err := s.store.PendingRetries(ctx, d, s.config.MaxRetry)
	if err != nil {
		logger.Error().Str("dataset", d.Name).Err(err).Msg("failed to read retry ledger")
		return
	}

	for _, date := range pending {
		logger.Info().Str("dataset", d.Name).Str("date", date.Format(dateFormat)).Msg("retrying failed date")
		s.ingestUnit(ctx, d, date, fetch, logger)
	}
}

// resumeDate computes where forward ingestion starts: the day after the
// archive watermark, or today minus the initial lookback when empty.
func (s *Service) resumeDate(ctx context.Context, d *models.Dataset, today time.Time, lookbackDays int) (time.Time, error) {
	watermark, ok, err := s.store.Watermark(ctx, d)
	if err != nil {
		return time.Time{}, err
	}
	if ok {
		return watermark.AddDate(0, 0, 1), nil
	}
	return today.AddDate(0, 0, -lookbackDays), nil
}

// ingestUnit fetches one date and updates the ledger with the outcome. Unit
// failures never abort the run; ledger write failures are logged and dropped
// so a failure to record a failure cannot crash ingestion.
func (s *Service) ingestUnit(ctx context.Context, d *models.Dataset, date time.Time, fetch fetchFunc, logger *common.Logger) {
	count, err := fetch(ctx, date, s.store.PageWriter(d))
	if err != nil {
		logger.Error().
			Str("dataset", d.Name).
			Str("date", date.Format(dateFormat)).
			Err(err).
			Msg("date failed")
		if ledgerErr := s.store.RecordFailure(ctx, d, date, err); ledgerErr != nil {
			logger.Error().Str("dataset", d.Name).Err(ledgerErr).Msg("failed to update retry ledger")
		}
		return
	}

	if ledgerErr := s.store.RecordSuccess(ctx, d, date); ledgerErr != nil {
		logger.Error().Str("dataset", d.Name).Err(ledgerErr).Msg("failed to clear retry ledger")
	}

	logger.Info().
		Str("dataset", d.Name).
		Str("date", date.Format(dateFormat)).
		Int("records", count).
		Msg("date ingested")
}

// truncateDay strips the time component, leaving a calendar date.
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Ensure Service implements IngestService
var _ interfaces.IngestService = (*Service)(nil)
