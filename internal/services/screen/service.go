// Package screen ranks stored entities by a composite quality score
package screen

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tkasuya/jqfeed/internal/common"
	"github.com/tkasuya/jqfeed/internal/interfaces"
	"github.com/tkasuya/jqfeed/internal/models"
)

// Service implements ScreenService
type Service struct {
	store  interfaces.ScreenStore
	config common.ScreenConfig
	logger *common.Logger
}

// NewService creates a new screen service
func NewService(store interfaces.ScreenStore, config common.ScreenConfig, logger *common.Logger) *Service {
	return &Service{
		store:  store,
		config: config,
		logger: logger,
	}
}

// Screen filters the latest stored data and returns candidates ordered by
// descending composite score, capped at limit (0 = configured default).
func (s *Service) Screen(ctx context.Context, limit int) ([]*models.Candidate, error) {
	date, ok, err := s.store.LatestQuoteDate(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no quotes stored; run ingestion first")
	}

	s.logger.Info().Str("price_date", date).Msg("screening stored data")

	rows, err := s.store.ScreenRows(ctx, date, interfaces.ScreenFilters{
		MinVolume:      s.config.MinVolume,
		MinROE:         s.config.MinROE,
		SalesRetention: s.config.SalesRetention,
		MinPER:         s.config.MinPER,
		MaxPER:         s.config.MaxPER,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]*models.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, s.score(row))
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit <= 0 {
		limit = s.config.Limit
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	s.logger.Info().Int("candidates", len(candidates)).Msg("screening complete")

	return candidates, nil
}

// score computes the weighted composite of return on equity, forecast EPS
// growth, and log-scaled liquidity.
func (s *Service) score(row *models.ScreenRow) *models.Candidate {
	roe := row.Profit / row.Equity

	epsGrowth := 0.0
	if row.EPS > 0 {
		epsGrowth = (row.ForecastEPS - row.EPS) / math.Abs(row.EPS)
	}

	per := 0.0
	if row.ForecastEPS > 0 {
		per = row.Close / row.ForecastEPS
	}

	liquidity := 0.0
	if row.Volume > 0 {
		liquidity = math.Log10(row.Volume)
	}

	score := roe*100*s.config.ROEWeight +
		epsGrowth*100*s.config.GrowthWeight +
		liquidity*10*s.config.LiquidityWeight

	salesGrowth := 0.0
	if row.NetSales > 0 {
		salesGrowth = (row.ForecastNetSales/row.NetSales - 1) * 100
	}

	return &models.Candidate{
		Code:        row.Code,
		Price:       row.Close,
		ROE:         roe * 100,
		PER:         per,
		ForecastEPS: row.ForecastEPS,
		SalesGrowth: salesGrowth,
		Volume:      row.Volume,
		Score:       score,
	}
}

// FormatCandidates renders candidates as an aligned console table.
func FormatCandidates(candidates []*models.Candidate) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "CODE\tPRICE\tROE%\tPER\tEPS(F)\tSALES%\tSCORE")
	for _, c := range candidates {
		fmt.Fprintf(w, "%s\t%.0f\t%.2f\t%.1f\t%.1f\t%+.1f\t%.1f\n",
			c.Code, c.Price, c.ROE, c.PER, c.ForecastEPS, c.SalesGrowth, c.Score)
	}
	w.Flush()

	return sb.String()
}

// Ensure Service implements ScreenService
var _ interfaces.ScreenService = (*Service)(nil)
