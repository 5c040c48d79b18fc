package models

// ScreenRow holds the per-code inputs read by the screening query: the latest
// financial record joined with the target date's price record.
type ScreenRow struct {
	Code             string
	Close            float64
	Volume           float64
	NetSales         float64
	ForecastNetSales float64
	Profit           float64
	Equity           float64
	EPS              float64
	ForecastEPS      float64
}

// Candidate is one entity surviving the screening filters, with the inputs
// that produced its composite score.
type Candidate struct {
	Code        string
	Price       float64
	ROE         float64 // percent
	PER         float64
	ForecastEPS float64
	SalesGrowth float64 // percent, forecast vs prior actual
	Volume      float64
	Score       float64
}
