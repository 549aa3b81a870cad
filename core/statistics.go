package core

import (
	"math"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"

	ex "mc.backtest/extensions"
	"mc.backtest/models"
)

// CalculateStats returns the mean and sample (n-1) standard deviation of a series,
// nil when there are fewer than two points or the series holds a non-finite value.
func CalculateStats(series []float64) *models.SeriesStats {
	if len(series) < 2 {
		return nil
	}

	// a zero close gives an infinite log return, neither moment exists then
	mean, stdDev := stat.MeanStdDev(series, nil)
	if !ex.IsFinite(mean) || !ex.IsFinite(stdDev) {
		return nil
	}

	return &models.SeriesStats{
		Mean:   mean,
		StdDev: stdDev,
	}
}

// CalculateBeta is Cov(asset, benchmark) / Var(benchmark). It is invalid when the series
// differ in length, have fewer than two points, hold a non-finite value, or the benchmark is constant.
func CalculateBeta(asset, benchmark []float64) null.Float {
	_, beta, ok := regress(asset, benchmark)
	if !ok {
		return null.Float{}
	}
	return null.FloatFrom(beta)
}

// CalculateAlpha is the single factor regression intercept on excess returns:
// mean(asset - rf) - beta(asset - rf, benchmark - rf) * mean(benchmark - rf).
// riskFree is a per-period series and must be as long as asset and benchmark.
func CalculateAlpha(asset, benchmark, riskFree []float64) null.Float {
	if len(asset) != len(riskFree) {
		return null.Float{}
	}

	excessAsset, err := ex.Subtract(asset, riskFree)
	if err != nil {
		return null.Float{}
	}
	excessBenchmark, err := ex.Subtract(benchmark, riskFree)
	if err != nil {
		return null.Float{}
	}

	alpha, _, ok := regress(excessAsset, excessBenchmark)
	if !ok {
		return null.Float{}
	}
	return null.FloatFrom(alpha)
}

// regress fits asset = alpha + beta*benchmark. The n vs n-1 normalisation cancels in
// cov/var so the population and sample estimators give the same beta.
func regress(asset, benchmark []float64) (alpha, beta float64, ok bool) {
	if len(asset) != len(benchmark) || len(benchmark) < 2 {
		return 0, 0, false
	}

	// zero variance benchmark, beta is undefined
	if ex.AreAllEqual(benchmark) || stat.Variance(benchmark, nil) == 0 {
		return 0, 0, false
	}

	if !ex.AllFinite(asset) || !ex.AllFinite(benchmark) {
		return 0, 0, false
	}

	alpha, beta = stat.LinearRegression(benchmark, asset, nil, false)
	if !ex.IsFinite(alpha) || !ex.IsFinite(beta) {
		return 0, 0, false
	}
	return alpha, beta, true
}

// HistoricalSharpe annualizes daily stats and nets off an annual risk free rate
func HistoricalSharpe(stats *models.SeriesStats, annualRiskFree float64) null.Float {
	if stats == nil {
		return null.Float{}
	}

	annualizedReturn := stats.Mean * models.TradingDaysPerYear
	annualizedVolatility := stats.StdDev * math.Sqrt(models.TradingDaysPerYear)
	if !(annualizedVolatility > 0) {
		return null.Float{}
	}

	sharpe := (annualizedReturn - annualRiskFree) / annualizedVolatility
	if !ex.IsFinite(sharpe) {
		return null.Float{}
	}
	return null.FloatFrom(sharpe)
}
