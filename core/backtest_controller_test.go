package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mc.backtest/ingest"
	"mc.backtest/models"
)

// Helper: write a price table with one row per close, one calendar day apart
func writePriceFile(t *testing.T, dir, name string, closes []float64) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("date,open,high,low,close,volume\n")
	day := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		fmt.Fprintf(&b, "%s,%g,%g,%g,%g,%d\n", day.AddDate(0, 0, i).Format(time.DateOnly), c, c, c, c, 1000+i)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testServiceContext() *ServiceContext {
	return &ServiceContext{Context: context.Background(), Logger: zerolog.Nop()}
}

var (
	portfolioCloses = []float64{100, 101.5, 100.8, 102.2, 103.1, 102.4, 104.0, 105.2}
	benchmarkCloses = []float64{50, 50.4, 50.1, 50.9, 51.3, 51.0, 51.6, 52.1}
)

func TestRunBacktestWithConstantRiskFree(t *testing.T) {
	dir := t.TempDir()
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", portfolioCloses)),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", benchmarkCloses)),
		Settings: models.BacktestSettings{
			RiskFreeRate: 0.02,
			Simulations:  200,
			Seed:         42,
		},
	}

	report, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunId)
	assert.Equal(t, 8, report.Portfolio.Records)
	assert.Equal(t, 7, report.Portfolio.Returns)
	require.NotNil(t, report.Portfolio.Stats)
	require.NotNil(t, report.Benchmark.Stats)

	assert.Equal(t, models.RiskFreeSourceConstant, report.RiskFree.Source)
	assert.Equal(t, 0.02, report.RiskFree.AnnualRate)

	require.NotNil(t, report.Sharpe)
	assert.Equal(t, 200, report.Sharpe.Trials)
	assert.Equal(t, 200, report.Sharpe.Count)
	assert.Equal(t, uint64(42), report.Sharpe.Seed)

	assert.True(t, report.HistoricalSharpe.Valid)
	assert.True(t, report.Beta.Valid)
	assert.True(t, report.Alpha.Valid)
	assert.Empty(t, report.Diagnostics)

	portfolio, err := ingest.LoadPrices(string(req.Portfolio.(FileSource)))
	require.NoError(t, err)
	benchmark, err := ingest.LoadPrices(string(req.Benchmark.(FileSource)))
	require.NoError(t, err)
	assert.InDelta(t, CalculateBeta(CalculateReturns(portfolio), CalculateReturns(benchmark)).Float64, report.Beta.Float64, 1e-12)
}

func TestRunBacktestIsReproducibleForASeed(t *testing.T) {
	dir := t.TempDir()
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", portfolioCloses)),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", benchmarkCloses)),
		Settings:  models.BacktestSettings{Simulations: 100, Seed: 7},
	}

	a, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)
	b, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunId, b.RunId)
	assert.Equal(t, a.Sharpe.Mean, b.Sharpe.Mean)
	assert.Equal(t, a.Sharpe.P50, b.Sharpe.P50)
}

func TestRunBacktestWithRiskFreeFile(t *testing.T) {
	dir := t.TempDir()
	riskFree := writeFile(t, dir, "rates.csv", "Date,1 Mo,3 Mo\n"+
		"01/02/2025,4.40,4.30\n"+
		"01/03/2025,,4.31\n"+
		"01/06/2025,4.20,4.32\n")

	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", portfolioCloses)),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", benchmarkCloses)),
		RiskFree:  FileSource(riskFree),
		Settings:  models.BacktestSettings{Maturity: "1 Mo", Simulations: 50, Seed: 1},
	}

	report, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.Equal(t, models.RiskFreeSourceFile, report.RiskFree.Source)
	assert.Equal(t, "1 Mo", report.RiskFree.Maturity)
	assert.Equal(t, 2, report.RiskFree.Periods)

	// two daily rates padded forward over seven returns
	first := models.PeriodRate(0.044)
	last := models.PeriodRate(0.042)
	expected := (first + 6*last) / 7 * models.TradingDaysPerYear
	assert.InDelta(t, expected, report.RiskFree.AnnualRate, 1e-12)
	assert.True(t, report.Alpha.Valid)
	assert.False(t, math.IsNaN(report.Alpha.Float64))
}

func TestRunBacktestReportsWhatItCannotCompute(t *testing.T) {
	dir := t.TempDir()
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", []float64{100, 101})),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", []float64{50, 50, 50, 50})),
		Settings:  models.BacktestSettings{Simulations: 10, Seed: 1},
	}

	report, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.Nil(t, report.Portfolio.Stats)
	assert.Nil(t, report.Sharpe)
	assert.False(t, report.HistoricalSharpe.Valid)
	assert.False(t, report.Beta.Valid)
	assert.False(t, report.Alpha.Valid)

	joined := strings.Join(report.Diagnostics, "\n")
	assert.Contains(t, joined, "portfolio: not enough data points")
	assert.Contains(t, joined, "monte carlo sharpe: skipped")
	assert.Contains(t, joined, "beta: portfolio and benchmark have different lengths (1 vs 3 returns)")
}

func TestRunBacktestConstantBenchmarkHasNoBeta(t *testing.T) {
	dir := t.TempDir()
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", []float64{100, 101, 99, 102})),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", []float64{50, 50, 50, 50})),
		Settings:  models.BacktestSettings{Simulations: 10, Seed: 1},
	}

	report, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.False(t, report.Beta.Valid)
	assert.Contains(t, strings.Join(report.Diagnostics, "\n"), "beta: benchmark returns have zero variance")
}

func TestRunBacktestPropagatesIngestionErrors(t *testing.T) {
	dir := t.TempDir()
	good := FileSource(writePriceFile(t, dir, "good.csv", portfolioCloses))
	bad := FileSource(writeFile(t, dir, "bad.csv", "date,open,high,low,close,volume\n2025-13-45,1,1,1,1,1\n"))

	_, err := testServiceContext().RunBacktest(BacktestRequest{Portfolio: good, Benchmark: bad})
	assert.ErrorIs(t, err, ingest.ErrMalformedRecord)

	_, err = testServiceContext().RunBacktest(BacktestRequest{Portfolio: FileSource(filepath.Join(dir, "missing.csv")), Benchmark: good})
	assert.ErrorIs(t, err, ingest.ErrIO)
}

func TestRunBacktestEmptyRiskFreeFails(t *testing.T) {
	dir := t.TempDir()
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", portfolioCloses)),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", benchmarkCloses)),
		RiskFree:  FileSource(writeFile(t, dir, "rates.csv", "Date,1 Mo\n01/02/2025,\n")),
	}

	_, err := testServiceContext().RunBacktest(req)
	assert.ErrorIs(t, err, ErrEmptyRiskFree)
}

func TestRunBacktestZeroCloseLeavesStatisticsAbsent(t *testing.T) {
	dir := t.TempDir()
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", []float64{100, 0, 101, 102})),
		Benchmark: FileSource(writePriceFile(t, dir, "benchmark.csv", benchmarkCloses[:4])),
		Settings:  models.BacktestSettings{RiskFreeRate: 0.02, Simulations: 50, Seed: 3},
	}

	report, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Portfolio.Returns)
	assert.Nil(t, report.Portfolio.Stats)
	assert.NotNil(t, report.Benchmark.Stats)
	assert.Nil(t, report.Sharpe)
	assert.False(t, report.HistoricalSharpe.Valid)
	assert.False(t, report.Beta.Valid)
	assert.False(t, report.Alpha.Valid)
	assert.Contains(t, report.Diagnostics, "portfolio: returns are not finite, check for zero or non-numeric close prices")
	assert.Contains(t, report.Diagnostics, "beta: returns are not finite, check for zero or non-numeric close prices")
	assert.Contains(t, report.Diagnostics, "alpha: returns are not finite, check for zero or non-numeric close prices")

	_, err = json.Marshal(report)
	assert.NoError(t, err)
}

func TestRunBacktestNaNCloseLeavesStatisticsAbsent(t *testing.T) {
	dir := t.TempDir()
	nanTable := "date,open,high,low,close,volume\n" +
		"2025-01-02,1,1,1,50,1\n2025-01-03,1,1,1,NaN,1\n2025-01-04,1,1,1,51,1\n2025-01-05,1,1,1,52,1\n"
	req := BacktestRequest{
		Portfolio: FileSource(writePriceFile(t, dir, "portfolio.csv", portfolioCloses[:4])),
		Benchmark: FileSource(writeFile(t, dir, "benchmark.csv", nanTable)),
		Settings:  models.BacktestSettings{RiskFreeRate: 0.02, Simulations: 50, Seed: 3},
	}

	report, err := testServiceContext().RunBacktest(req)
	require.NoError(t, err)

	assert.NotNil(t, report.Portfolio.Stats)
	assert.Nil(t, report.Benchmark.Stats)
	assert.NotNil(t, report.Sharpe)
	assert.False(t, report.Beta.Valid)
	assert.False(t, report.Alpha.Valid)
	assert.Contains(t, report.Diagnostics, "benchmark: returns are not finite, check for zero or non-numeric close prices")

	_, err = json.Marshal(report)
	assert.NoError(t, err)
}
