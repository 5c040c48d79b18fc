package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jqfeed.db"), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func quoteRecord(t *testing.T, fields map[string]any) *models.Record {
	t.Helper()
	payload, err := json.Marshal(fields)
	require.NoError(t, err)
	record, err := models.ParseRecord(models.DailyQuotes, payload)
	require.NoError(t, err)
	return record
}

func finRecord(t *testing.T, fields map[string]any) *models.Record {
	t.Helper()
	payload, err := json.Marshal(fields)
	require.NoError(t, err)
	record, err := models.ParseRecord(models.Financials, payload)
	require.NoError(t, err)
	return record
}

func countRows(t *testing.T, store *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestWritePage_DualWrite(t *testing.T) {
	store := openTestStore(t)
	sink := store.PageWriter(models.DailyQuotes)

	records := []*models.Record{
		quoteRecord(t, map[string]any{"Date": "2024-01-02", "Code": "72030", "Close": 2500.5, "Volume": 100000.0}),
		quoteRecord(t, map[string]any{"Date": "2024-01-02", "Code": "99840", "Close": 6200.0, "Volume": 80000.0}),
	}
	require.NoError(t, sink.WritePage(context.Background(), records))

	assert.Equal(t, 2, countRows(t, store, "daily_quotes_raw"))
	assert.Equal(t, 2, countRows(t, store, "daily_quotes"))

	var closePrice float64
	require.NoError(t, store.DB().QueryRow(
		"SELECT Close FROM daily_quotes WHERE Date = ? AND Code = ?", "2024-01-02", "72030").Scan(&closePrice))
	assert.Equal(t, 2500.5, closePrice)
}

func TestWritePage_Idempotent(t *testing.T) {
	store := openTestStore(t)
	sink := store.PageWriter(models.DailyQuotes)

	records := []*models.Record{
		quoteRecord(t, map[string]any{"Date": "2024-01-02", "Code": "72030", "Close": 2500.5}),
	}
	require.NoError(t, sink.WritePage(context.Background(), records))

	// Re-ingesting the same date must not duplicate or overwrite.
	records[0].Fields["Close"] = 9999.0
	require.NoError(t, sink.WritePage(context.Background(), records))

	assert.Equal(t, 1, countRows(t, store, "daily_quotes_raw"))
	assert.Equal(t, 1, countRows(t, store, "daily_quotes"))

	var closePrice float64
	require.NoError(t, store.DB().QueryRow(
		"SELECT Close FROM daily_quotes WHERE Code = ?", "72030").Scan(&closePrice))
	assert.Equal(t, 2500.5, closePrice)
}

func TestWritePage_ArchivePreservesPayload(t *testing.T) {
	store := openTestStore(t)
	sink := store.PageWriter(models.DailyQuotes)

	// MysteryField is outside the column manifest and survives only in the
	// archive payload.
	record := quoteRecord(t, map[string]any{
		"Date": "2024-01-02", "Code": "72030", "Close": 2500.5, "MysteryField": "kept",
	})
	require.NoError(t, sink.WritePage(context.Background(), []*models.Record{record}))

	var blob []byte
	require.NoError(t, store.DB().QueryRow(
		"SELECT payload FROM daily_quotes_raw WHERE Code = ?", "72030").Scan(&blob))

	zr, err := gzip.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	restored, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.JSONEq(t, string(record.Payload), string(restored))
	assert.Contains(t, string(restored), "MysteryField")
}

func TestWritePage_RenamesREITFields(t *testing.T) {
	store := openTestStore(t)
	sink := store.PageWriter(models.Financials)

	record := finRecord(t, map[string]any{
		"DisclosedDate":              "2024-01-15",
		"LocalCode":                  "89510",
		"DistributionsPerUnit(REIT)": "1234.0",
	})
	require.NoError(t, sink.WritePage(context.Background(), []*models.Record{record}))

	var dist string
	require.NoError(t, store.DB().QueryRow(
		"SELECT DistributionsPerUnit_REIT FROM financials WHERE LocalCode = ?", "89510").Scan(&dist))
	assert.Equal(t, "1234.0", dist)

	// The archive keeps the original field name.
	var blob []byte
	require.NoError(t, store.DB().QueryRow(
		"SELECT payload FROM financials_raw WHERE LocalCode = ?", "89510").Scan(&blob))
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	require.NoError(t, err)
	restored, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(restored), "DistributionsPerUnit(REIT)")
}

func TestWatermark(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Watermark(ctx, models.DailyQuotes)
	require.NoError(t, err)
	assert.False(t, ok, "empty archive has no watermark")

	sink := store.PageWriter(models.DailyQuotes)
	require.NoError(t, sink.WritePage(ctx, []*models.Record{
		quoteRecord(t, map[string]any{"Date": "2024-01-02", "Code": "72030"}),
		quoteRecord(t, map[string]any{"Date": "2024-01-04", "Code": "72030"}),
		quoteRecord(t, map[string]any{"Date": "2024-01-03", "Code": "72030"}),
	}))

	watermark, ok, err := store.Watermark(ctx, models.DailyQuotes)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-01-04", watermark.Format("2006-01-02"))
	assert.True(t, watermark.Equal(time.Date(2024, 1, 4, 0, 0, 0, 0, time.Local)),
		"watermark is local midnight so day arithmetic matches time.Now()")
}

func TestLedger_FailureUpsert(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordFailure(ctx, models.DailyQuotes, date, errors.New("timeout")))
	entry, err := store.LedgerEntry(ctx, models.DailyQuotes, date)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 0, entry.RetryCount)
	assert.Equal(t, "timeout", entry.LastError)

	require.NoError(t, store.RecordFailure(ctx, models.DailyQuotes, date, errors.New("http 500")))
	require.NoError(t, store.RecordFailure(ctx, models.DailyQuotes, date, errors.New("http 503")))

	entry, err = store.LedgerEntry(ctx, models.DailyQuotes, date)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 2, entry.RetryCount)
	assert.Equal(t, "http 503", entry.LastError)
}

func TestLedger_SuccessClearsEntry(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordFailure(ctx, models.Financials, date, errors.New("timeout")))
	require.NoError(t, store.RecordSuccess(ctx, models.Financials, date))

	entry, err := store.LedgerEntry(ctx, models.Financials, date)
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Clearing a date with no entry is a no-op.
	require.NoError(t, store.RecordSuccess(ctx, models.Financials, date))
}

func TestLedger_IndependentPerDataset(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.RecordFailure(ctx, models.DailyQuotes, date, errors.New("timeout")))

	entry, err := store.LedgerEntry(ctx, models.Financials, date)
	require.NoError(t, err)
	assert.Nil(t, entry, "quote failure must not appear in the financial ledger")
}

func TestPendingRetries_CutoffAndOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	maxRetry := 3

	fail := func(day string, times int) {
		date, err := time.Parse("2006-01-02", day)
		require.NoError(t, err)
		for i := 0; i < times; i++ {
			require.NoError(t, store.RecordFailure(ctx, models.DailyQuotes, date, errors.New("timeout")))
		}
	}

	fail("2024-01-05", 2) // retry_count 1
	fail("2024-01-03", 1) // retry_count 0
	fail("2024-01-04", 4) // retry_count 3, at the cutoff

	dates, err := store.PendingRetries(ctx, models.DailyQuotes, maxRetry)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-01-03", dates[0].Format("2006-01-02"))
	assert.Equal(t, "2024-01-05", dates[1].Format("2006-01-02"))

	// The exhausted date stays in the table for inspection.
	date, _ := time.Parse("2006-01-02", "2024-01-04")
	entry, err := store.LedgerEntry(ctx, models.DailyQuotes, date)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 3, entry.RetryCount)
}

func TestLatestQuoteDate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LatestQuoteDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	sink := store.PageWriter(models.DailyQuotes)
	require.NoError(t, sink.WritePage(ctx, []*models.Record{
		quoteRecord(t, map[string]any{"Date": "2024-01-02", "Code": "72030"}),
		quoteRecord(t, map[string]any{"Date": "2024-01-05", "Code": "72030"}),
	}))

	latest, ok, err := store.LatestQuoteDate(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-01-05", latest)
}

func seedScreenFixture(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	quotes := store.PageWriter(models.DailyQuotes)
	fins := store.PageWriter(models.Financials)

	require.NoError(t, quotes.WritePage(ctx, []*models.Record{
		quoteRecord(t, map[string]any{"Date": "2024-06-28", "Code": "10010", "Close": 50.0, "Volume": 50000.0}),
		quoteRecord(t, map[string]any{"Date": "2024-06-28", "Code": "20020", "Close": 50.0, "Volume": 500.0}),
	}))

	// An older losing disclosure for 10010; only the newest one may count.
	require.NoError(t, fins.WritePage(ctx, []*models.Record{
		finRecord(t, map[string]any{
			"DisclosedDate": "2024-02-10", "LocalCode": "10010",
			"NetSales": "100", "ForecastNetSales": "96",
			"Profit": "-1", "Equity": "1000",
			"EarningsPerShare": "4", "ForecastEarningsPerShare": "5",
		}),
		finRecord(t, map[string]any{
			"DisclosedDate": "2024-05-10", "LocalCode": "10010",
			"NetSales": "100", "ForecastNetSales": "96",
			"Profit": "100", "Equity": "1000",
			"EarningsPerShare": "4", "ForecastEarningsPerShare": "5",
		}),
		finRecord(t, map[string]any{
			"DisclosedDate": "2024-05-10", "LocalCode": "20020",
			"NetSales": "100", "ForecastNetSales": "96",
			"Profit": "100", "Equity": "1000",
			"EarningsPerShare": "4", "ForecastEarningsPerShare": "5",
		}),
	}))
}

func TestScreenRows(t *testing.T) {
	store := openTestStore(t)
	seedScreenFixture(t, store)

	filters := interfaces.ScreenFilters{
		MinVolume:      10000,
		MinROE:         0.08,
		SalesRetention: 0.95,
		MinPER:         5,
		MaxPER:         40,
	}
	rows, err := store.ScreenRows(context.Background(), "2024-06-28", filters)
	require.NoError(t, err)

	// 20020 fails the volume floor; 10010 survives on its latest disclosure.
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "10010", row.Code)
	assert.Equal(t, 50.0, row.Close)
	assert.Equal(t, 50000.0, row.Volume)
	assert.Equal(t, 100.0, row.Profit)
	assert.Equal(t, 1000.0, row.Equity)
	assert.Equal(t, 4.0, row.EPS)
	assert.Equal(t, 5.0, row.ForecastEPS)
}

func TestScreenRows_FilterBoundaries(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	quotes := store.PageWriter(models.DailyQuotes)
	fins := store.PageWriter(models.Financials)

	cases := []struct {
		code   string
		close  float64
		fields map[string]any
	}{
		// ROE exactly at the floor passes (>=).
		{"30030", 50.0, map[string]any{
			"NetSales": "100", "ForecastNetSales": "96",
			"Profit": "80", "Equity": "1000",
			"EarningsPerShare": "4", "ForecastEarningsPerShare": "5",
		}},
		// Shrinking sales below the retention floor fails.
		{"40040", 50.0, map[string]any{
			"NetSales": "100", "ForecastNetSales": "94",
			"Profit": "100", "Equity": "1000",
			"EarningsPerShare": "4", "ForecastEarningsPerShare": "5",
		}},
		// PER above the ceiling fails (Close 250 / ForecastEPS 5 = 50).
		{"50050", 250.0, map[string]any{
			"NetSales": "100", "ForecastNetSales": "96",
			"Profit": "100", "Equity": "1000",
			"EarningsPerShare": "4", "ForecastEarningsPerShare": "5",
		}},
	}

	var quoteRecords, finRecords []*models.Record
	for _, tc := range cases {
		quoteRecords = append(quoteRecords, quoteRecord(t, map[string]any{
			"Date": "2024-06-28", "Code": tc.code, "Close": tc.close, "Volume": 50000.0,
		}))
		fields := map[string]any{"DisclosedDate": "2024-05-10", "LocalCode": tc.code}
		for k, v := range tc.fields {
			fields[k] = v
		}
		finRecords = append(finRecords, finRecord(t, fields))
	}
	require.NoError(t, quotes.WritePage(ctx, quoteRecords))
	require.NoError(t, fins.WritePage(ctx, finRecords))

	filters := interfaces.ScreenFilters{
		MinVolume:      10000,
		MinROE:         0.08,
		SalesRetention: 0.95,
		MinPER:         5,
		MaxPER:         40,
	}
	rows, err := store.ScreenRows(ctx, "2024-06-28", filters)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "30030", rows[0].Code)
}

func TestScreenRows_NoFinancials(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PageWriter(models.DailyQuotes).WritePage(ctx, []*models.Record{
		quoteRecord(t, map[string]any{"Date": "2024-06-28", "Code": "10010", "Close": 50.0, "Volume": 50000.0}),
	}))

	rows, err := store.ScreenRows(ctx, "2024-06-28", interfaces.ScreenFilters{
		MinVolume: 10000, MinROE: 0.08, SalesRetention: 0.95, MinPER: 5, MaxPER: 40,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
