// Package models defines data types for jqfeed
package models

// Dataset describes one ingested dataset: its tables, key columns, and the
// manifest of payload fields that may become normalized columns. Payload keys
// outside the manifest are preserved in the raw archive only.
type Dataset struct {
	Name        string
	RawTable    string
	NormTable   string
	LedgerTable string
	DateColumn  string
	CodeColumn  string
	Columns     []string
	// TextColumns lists manifest columns stored as TEXT; all others are REAL.
	// Empty means every column is TEXT.
	TextColumns map[string]bool
	// Renames maps payload field names that are not legal column identifiers
	// to their sanitized column names. Applies to normalized writes only.
	Renames map[string]string
}

// Column returns the normalized column name for a payload field, applying the
// static rename table. Unmapped names pass through unchanged.
func (d *Dataset) Column(field string) string {
	if d.Renames != nil {
		if mapped, ok := d.Renames[field]; ok {
			return mapped
		}
	}
	return field
}

// InManifest reports whether a payload field routes to a normalized column.
func (d *Dataset) InManifest(field string) bool {
	col := d.Column(field)
	for _, c := range d.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// DailyQuotes is the daily price dataset. Numeric fields are REAL; the
// stop-limit flags are TEXT as delivered by the API.
var DailyQuotes = &Dataset{
	Name:        "daily_quotes",
	RawTable:    "daily_quotes_raw",
	NormTable:   "daily_quotes",
	LedgerTable: "failed_dates",
	DateColumn:  "Date",
	CodeColumn:  "Code",
	Columns: []string{
		"Date",
		"Code",
		"Open",
		"High",
		"Low",
		"Close",
		"UpperLimit",
		"LowerLimit",
		"Volume",
		"TurnoverValue",
		"AdjustmentFactor",
		"AdjustmentOpen",
		"AdjustmentHigh",
		"AdjustmentLow",
		"AdjustmentClose",
		"AdjustmentVolume",
		"MorningOpen",
		"MorningHigh",
		"MorningLow",
		"MorningClose",
		"MorningUpperLimit",
		"MorningLowerLimit",
		"MorningVolume",
		"MorningTurnoverValue",
		"MorningAdjustmentOpen",
		"MorningAdjustmentHigh",
		"MorningAdjustmentLow",
		"MorningAdjustmentClose",
		"MorningAdjustmentVolume",
		"AfternoonOpen",
		"AfternoonHigh",
		"AfternoonLow",
		"AfternoonClose",
		"AfternoonUpperLimit",
		"AfternoonLowerLimit",
		"AfternoonVolume",
		"AfternoonTurnoverValue",
		"AfternoonAdjustmentOpen",
		"AfternoonAdjustmentHigh",
		"AfternoonAdjustmentLow",
		"AfternoonAdjustmentClose",
		"AfternoonAdjustmentVolume",
	},
	TextColumns: map[string]bool{
		"Date":                true,
		"Code":                true,
		"UpperLimit":          true,
		"LowerLimit":          true,
		"MorningUpperLimit":   true,
		"MorningLowerLimit":   true,
		"AfternoonUpperLimit": true,
		"AfternoonLowerLimit": true,
	},
}

// Financials is the financial statements dataset. All value fields are TEXT;
// the screening query casts at read time. Three field names carry a "(REIT)"
// suffix illegal in a column identifier and are rewritten on normalized write.
var Financials = &Dataset{
	Name:        "financials",
	RawTable:    "financials_raw",
	NormTable:   "financials",
	LedgerTable: "financial_failed_dates",
	DateColumn:  "DisclosedDate",
	CodeColumn:  "LocalCode",
	Renames: map[string]string{
		"DistributionsPerUnit(REIT)":                 "DistributionsPerUnit_REIT",
		"ForecastDistributionsPerUnit(REIT)":         "ForecastDistributionsPerUnit_REIT",
		"NextYearForecastDistributionsPerUnit(REIT)": "NextYearForecastDistributionsPerUnit_REIT",
	},
	Columns: []string{
		"DisclosedDate",
		"DisclosedTime",
		"LocalCode",
		"DisclosureNumber",
		"TypeOfDocument",
		"TypeOfCurrentPeriod",
		"CurrentPeriodStartDate",
		"CurrentPeriodEndDate",
		"CurrentFiscalYearStartDate",
		"CurrentFiscalYearEndDate",
		"NextFiscalYearStartDate",
		"NextFiscalYearEndDate",

		"NetSales",
		"OperatingProfit",
		"OrdinaryProfit",
		"Profit",
		"EarningsPerShare",
		"DilutedEarningsPerShare",
		"TotalAssets",
		"Equity",
		"EquityToAssetRatio",
		"BookValuePerShare",

		"CashFlowsFromOperatingActivities",
		"CashFlowsFromInvestingActivities",
		"CashFlowsFromFinancingActivities",
		"CashAndEquivalents",

		"ResultDividendPerShare1stQuarter",
		"ResultDividendPerShare2ndQuarter",
		"ResultDividendPerShare3rdQuarter",
		"ResultDividendPerShareFiscalYearEnd",
		"ResultDividendPerShareAnnual",
		"DistributionsPerUnit_REIT",
		"ResultTotalDividendPaidAnnual",
		"ResultPayoutRatioAnnual",

		"ForecastDividendPerShare1stQuarter",
		"ForecastDividendPerShare2ndQuarter",
		"ForecastDividendPerShare3rdQuarter",
		"ForecastDividendPerShareFiscalYearEnd",
		"ForecastDividendPerShareAnnual",
		"ForecastDistributionsPerUnit_REIT",
		"ForecastTotalDividendPaidAnnual",
		"ForecastPayoutRatioAnnual",

		"NextYearForecastDividendPerShare1stQuarter",
		"NextYearForecastDividendPerShare2ndQuarter",
		"NextYearForecastDividendPerShare3rdQuarter",
		"NextYearForecastDividendPerShareFiscalYearEnd",
		"NextYearForecastDividendPerShareAnnual",
		"NextYearForecastDistributionsPerUnit_REIT",
		"NextYearForecastPayoutRatioAnnual",

		"ForecastNetSales2ndQuarter",
		"ForecastOperatingProfit2ndQuarter",
		"ForecastOrdinaryProfit2ndQuarter",
		"ForecastProfit2ndQuarter",
		"ForecastEarningsPerShare2ndQuarter",

		"NextYearForecastNetSales2ndQuarter",
		"NextYearForecastOperatingProfit2ndQuarter",
		"NextYearForecastOrdinaryProfit2ndQuarter",
		"NextYearForecastProfit2ndQuarter",
		"NextYearForecastEarningsPerShare2ndQuarter",

		"ForecastNetSales",
		"ForecastOperatingProfit",
		"ForecastOrdinaryProfit",
		"ForecastProfit",
		"ForecastEarningsPerShare",

		"NextYearForecastNetSales",
		"NextYearForecastOperatingProfit",
		"NextYearForecastOrdinaryProfit",
		"NextYearForecastProfit",
		"NextYearForecastEarningsPerShare",

		"MaterialChangesInSubsidiaries",
		"SignificantChangesInTheScopeOfConsolidation",
		"ChangesBasedOnRevisionsOfAccountingStandard",
		"ChangesOtherThanOnesBasedOnRevisionsOfAccountingStandard",
		"ChangesInAccountingEstimates",
		"RetrospectiveRestatement",

		"NumberOfIssuedAndOutstandingSharesAtTheEndOfFiscalYearIncludingTreasuryStock",
		"NumberOfTreasuryStockAtTheEndOfFiscalYear",
		"AverageNumberOfShares",

		"NonConsolidatedNetSales",
		"NonConsolidatedOperatingProfit",
		"NonConsolidatedOrdinaryProfit",
		"NonConsolidatedProfit",
		"NonConsolidatedEarningsPerShare",
		"NonConsolidatedTotalAssets",
		"NonConsolidatedEquity",
		"NonConsolidatedEquityToAssetRatio",
		"NonConsolidatedBookValuePerShare",

		"ForecastNonConsolidatedNetSales2ndQuarter",
		"ForecastNonConsolidatedOperatingProfit2ndQuarter",
		"ForecastNonConsolidatedOrdinaryProfit2ndQuarter",
		"ForecastNonConsolidatedProfit2ndQuarter",
		"ForecastNonConsolidatedEarningsPerShare2ndQuarter",

		"NextYearForecastNonConsolidatedNetSales2ndQuarter",
		"NextYearForecastNonConsolidatedOperatingProfit2ndQuarter",
		"NextYearForecastNonConsolidatedOrdinaryProfit2ndQuarter",
		"NextYearForecastNonConsolidatedProfit2ndQuarter",
		"NextYearForecastNonConsolidatedEarningsPerShare2ndQuarter",

		"ForecastNonConsolidatedNetSales",
		"ForecastNonConsolidatedOperatingProfit",
		"ForecastNonConsolidatedOrdinaryProfit",
		"ForecastNonConsolidatedProfit",
		"ForecastNonConsolidatedEarningsPerShare",

		"NextYearForecastNonConsolidatedNetSales",
		"NextYearForecastNonConsolidatedOperatingProfit",
		"NextYearForecastNonConsolidatedOrdinaryProfit",
		"NextYearForecastNonConsolidatedProfit",
		"NextYearForecastNonConsolidatedEarningsPerShare",
	},
}
