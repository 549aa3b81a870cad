package models

import "math"

// TradingDaysPerYear is the number of periods used to annualize daily
// statistics and to convert annual rates to per-period rates.
const TradingDaysPerYear = 252

const (
	DefaultMaturity     = "1 Mo"
	DefaultRiskFreeRate = 0.02
	DefaultSimulations  = 1000
)

// SeriesStats is the sample mean and Bessel corrected standard deviation of a series
type SeriesStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
}

// PeriodRate converts an annual decimal rate into the equivalent compounded
// per-period rate over TradingDaysPerYear periods.
func PeriodRate(annual float64) float64 {
	return math.Pow(1+annual, 1.0/TradingDaysPerYear) - 1
}
