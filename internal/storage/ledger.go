package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tkasuya/jqfeed/internal/models"
)

// ledgerDateFormat is the stored form of ledger and archive dates.
const ledgerDateFormat = "2006-01-02"

// Watermark returns the maximum date in the dataset's archive table, the
// source of truth for what has been ingested. ok is false when empty.
func (s *Store) Watermark(ctx context.Context, d *models.Dataset) (time.Time, bool, error) {
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s", d.DateColumn, d.RawTable)

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read %s watermark: %w", d.Name, err)
	}
	if !latest.Valid || latest.String == "" {
		return time.Time{}, false, nil
	}

	// Local location, so watermark arithmetic lines up with the local-midnight
	// "today" the ingest service compares against.
	watermark, err := time.ParseInLocation(ledgerDateFormat, latest.String, time.Local)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse %s watermark %q: %w", d.Name, latest.String, err)
	}
	return watermark, true, nil
}

// RecordFailure upserts the ledger entry for a failed date: retry_count=0 on
// first failure, incremented with last_error overwritten on each subsequent
// failure. Committed immediately so a crash cannot lose the entry.
func (s *Store) RecordFailure(ctx context.Context, d *models.Dataset, date time.Time, cause error) error {
	stmt := fmt.Sprintf(`INSERT INTO %s (%s, last_error, retry_count) VALUES (?, ?, 0)
ON CONFLICT(%s) DO UPDATE SET retry_count = retry_count + 1, last_error = excluded.last_error`,
		d.LedgerTable, d.DateColumn, d.DateColumn)

	if _, err := s.db.ExecContext(ctx, stmt, date.Format(ledgerDateFormat), cause.Error()); err != nil {
		return fmt.Errorf("failed to record %s failure for %s: %w", d.Name, date.Format(ledgerDateFormat), err)
	}
	return nil
}

// RecordSuccess deletes the ledger entry for a date. A missing entry is a
// no-op.
func (s *Store) RecordSuccess(ctx context.Context, d *models.Dataset, date time.Time) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", d.LedgerTable, d.DateColumn)

	if _, err := s.db.ExecContext(ctx, stmt, date.Format(ledgerDateFormat)); err != nil {
		return fmt.Errorf("failed to clear %s ledger for %s: %w", d.Name, date.Format(ledgerDateFormat), err)
	}
	return nil
}

// PendingRetries returns dates still eligible for retry, least-retried and
// oldest first. Dates at the cutoff remain in the table for inspection but
// are excluded from automatic attempts.
func (s *Store) PendingRetries(ctx context.Context, d *models.Dataset, maxRetry int) ([]time.Time, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE retry_count < ? ORDER BY retry_count, %s",
		d.DateColumn, d.LedgerTable, d.DateColumn)

	rows, err := s.db.QueryContext(ctx, query, maxRetry)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s pending retries: %w", d.Name, err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s retry date: %w", d.Name, err)
		}
		date, err := time.ParseInLocation(ledgerDateFormat, raw, time.Local)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s retry date %q: %w", d.Name, raw, err)
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

// LedgerEntry returns the ledger row for a date, or nil when absent.
func (s *Store) LedgerEntry(ctx context.Context, d *models.Dataset, date time.Time) (*models.RetryEntry, error) {
	query := fmt.Sprintf("SELECT last_error, retry_count FROM %s WHERE %s = ?", d.LedgerTable, d.DateColumn)

	entry := &models.RetryEntry{Date: date}
	err := s.db.QueryRowContext(ctx, query, date.Format(ledgerDateFormat)).
		Scan(&entry.LastError, &entry.RetryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s ledger entry: %w", d.Name, err)
	}
	return entry, nil
}
