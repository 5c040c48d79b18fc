package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

// LatestQuoteDate returns the most recent date in the normalized quote table.
func (s *Store) LatestQuoteDate(ctx context.Context) (string, bool, error) {
	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(Date) FROM daily_quotes").Scan(&latest); err != nil {
		return "", false, fmt.Errorf("failed to read latest quote date: %w", err)
	}
	if !latest.Valid || latest.String == "" {
		return "", false, nil
	}
	return latest.String, true, nil
}

// screenQuery joins the latest financial record per code (by disclosure date)
// with the target date's price record. Financial values are TEXT columns and
// are cast to REAL for filtering; the filters mirror interfaces.ScreenFilters.
const screenQuery = `
WITH latest_fin AS (
    SELECT
        LocalCode,
        CAST(NetSales AS REAL) AS net_sales,
        CAST(ForecastNetSales AS REAL) AS forecast_net_sales,
        CAST(Profit AS REAL) AS profit,
        CAST(Equity AS REAL) AS equity,
        CAST(EarningsPerShare AS REAL) AS eps,
        CAST(ForecastEarningsPerShare AS REAL) AS forecast_eps,
        ROW_NUMBER() OVER (PARTITION BY LocalCode ORDER BY DisclosedDate DESC) AS rn
    FROM financials
)
SELECT
    q.Code,
    q.Close,
    q.Volume,
    f.net_sales,
    f.forecast_net_sales,
    f.profit,
    f.equity,
    COALESCE(f.eps, 0),
    f.forecast_eps
FROM latest_fin f
JOIN daily_quotes q
  ON q.Code = f.LocalCode
 AND q.Date = ?
WHERE f.rn = 1
  AND q.Close IS NOT NULL
  AND q.Volume IS NOT NULL
  AND f.profit > 0
  AND f.equity > 0
  AND f.forecast_eps > 0
  AND q.Volume > ?
  AND f.forecast_net_sales > f.net_sales * ?
  AND f.profit / f.equity >= ?
  AND q.Close / f.forecast_eps BETWEEN ? AND ?
ORDER BY q.Code`

// ScreenRows runs the screening join for the target date and returns the rows
// surviving the numeric filters.
func (s *Store) ScreenRows(ctx context.Context, date string, f interfaces.ScreenFilters) ([]*models.ScreenRow, error) {
	rows, err := s.db.QueryContext(ctx, screenQuery,
		date, f.MinVolume, f.SalesRetention, f.MinROE, f.MinPER, f.MaxPER)
	if err != nil {
		return nil, fmt.Errorf("failed to run screening query: %w", err)
	}
	defer rows.Close()

	var results []*models.ScreenRow
	for rows.Next() {
		row := &models.ScreenRow{}
		if err := rows.Scan(
			&row.Code,
			&row.Close,
			&row.Volume,
			&row.NetSales,
			&row.ForecastNetSales,
			&row.Profit,
			&row.Equity,
			&row.EPS,
			&row.ForecastEPS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan screening row: %w", err)
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
