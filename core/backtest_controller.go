package core

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/guregu/null/v6"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	ex "mc.backtest/extensions"
	"mc.backtest/ingest"
	"mc.backtest/models"
)

// BacktestRequest names the inputs of one run. RiskFree is optional, without it
// Settings.RiskFreeRate is used as a constant annual rate.
type BacktestRequest struct {
	Portfolio Source
	Benchmark Source
	RiskFree  Source
	Settings  models.BacktestSettings
}

// RunBacktest loads the inputs, computes every statistic it can, and explains the ones it
// could not in the report diagnostics. Only ingestion failures and an empty risk free file
// fail the run.
func (sc *ServiceContext) RunBacktest(req BacktestRequest) (*models.BacktestReport, error) {
	start := time.Now()
	runId := uuid.NewString()
	log := sc.Logger.With().Str("run_id", runId).Logger()
	settings := applySettingDefaults(req.Settings)

	log.Info().
		Str("portfolio", req.Portfolio.Name()).
		Str("benchmark", req.Benchmark.Name()).
		Int("simulations", settings.Simulations).
		Msg("Received request to run backtest")

	var (
		portfolio, benchmark []models.PriceRecord
		riskFree             []float64
	)

	// the three tables are independent, read them side by side
	g, ctx := errgroup.WithContext(sc.Context)
	g.Go(func() (err error) {
		portfolio, err = loadPriceSource(ctx, req.Portfolio)
		return err
	})
	g.Go(func() (err error) {
		benchmark, err = loadPriceSource(ctx, req.Benchmark)
		return err
	})
	if req.RiskFree != nil {
		g.Go(func() (err error) {
			riskFree, err = loadRiskFreeSource(ctx, req.RiskFree, settings.Maturity)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Error loading backtest inputs")
		return nil, err
	}
	log.Debug().Dur("elapsed", time.Since(start)).Msg("Loaded backtest inputs")

	report := &models.BacktestReport{
		RunId:       runId,
		Diagnostics: []string{},
	}
	diagnose := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		report.Diagnostics = append(report.Diagnostics, msg)
		log.Warn().Msg(msg)
	}

	portfolioReturns := CalculateReturns(portfolio)
	benchmarkReturns := CalculateReturns(benchmark)
	report.Portfolio = summarizeSeries(req.Portfolio.Name(), portfolio, portfolioReturns)
	report.Benchmark = summarizeSeries(req.Benchmark.Name(), benchmark, benchmarkReturns)

	if report.Portfolio.Stats == nil {
		diagnose("portfolio: %s", statsFailure(portfolioReturns))
	}
	if report.Benchmark.Stats == nil {
		diagnose("benchmark: %s", statsFailure(benchmarkReturns))
	}

	riskFreeSeries, riskFreeSummary, err := resolveRiskFree(req.RiskFree, riskFree, len(portfolioReturns), settings)
	if err != nil {
		log.Error().Err(err).Msg("Error aligning risk free series")
		return nil, err
	}
	report.RiskFree = riskFreeSummary

	if stats := report.Portfolio.Stats; stats != nil {
		simulator := SharpeSimulator{
			Seed:      settings.Seed,
			Workers:   settings.Workers,
			BatchSize: settings.BatchSize,
		}

		log.Debug().Dur("elapsed", time.Since(start)).Msg("Running monte carlo sharpe simulation")
		sharpes, seed, err := simulator.Run(sc.Context, stats.Mean, stats.StdDev, riskFreeSummary.AnnualRate, settings.Simulations)
		if err != nil {
			log.Error().Err(err).Msg("Error running monte carlo sharpe simulation")
			return nil, err
		}

		report.Sharpe = SummarizeSharpe(sharpes, settings.Simulations, seed)
		if report.Sharpe == nil {
			diagnose("monte carlo sharpe: no trial produced a positive volatility (daily volatility %.6f, %d trials)", stats.StdDev, settings.Simulations)
		}

		report.HistoricalSharpe = HistoricalSharpe(stats, riskFreeSummary.AnnualRate)
		if !report.HistoricalSharpe.Valid {
			if stats.StdDev == 0 {
				diagnose("historical sharpe: portfolio volatility is zero")
			} else {
				diagnose("historical sharpe: result is not a finite number")
			}
		}
	} else {
		diagnose("monte carlo sharpe: skipped, portfolio mean and volatility are unavailable")
		diagnose("historical sharpe: skipped, portfolio mean and volatility are unavailable")
	}

	report.Beta = CalculateBeta(portfolioReturns, benchmarkReturns)
	if !report.Beta.Valid {
		diagnose("beta: %s", relativeFailure(portfolioReturns, benchmarkReturns))
	}

	report.Alpha = CalculateAlpha(portfolioReturns, benchmarkReturns, riskFreeSeries)
	if !report.Alpha.Valid {
		excessBenchmark, err := ex.Subtract(benchmarkReturns, riskFreeSeries)
		if err != nil {
			excessBenchmark = benchmarkReturns
		}
		diagnose("alpha: %s", relativeFailure(portfolioReturns, excessBenchmark))
	}

	log.Info().
		Dur("elapsed", time.Since(start)).
		Int("diagnostics", len(report.Diagnostics)).
		Msg("Backtest completed")

	return report, nil
}

// SummarizeSharpe condenses a sharpe distribution, nil when no trial survived
func SummarizeSharpe(sharpes []float64, trials int, seed uint64) *models.SharpeSummary {
	n := len(sharpes)
	if n == 0 {
		return nil
	}

	// stat.Quantile requires the slice to be sorted in increasing order
	sorted := slices.Clone(sharpes)
	slices.Sort(sorted)

	negatives := len(ex.FilterMultiple(sorted, func(s float64) bool { return s < 0 }))

	summary := &models.SharpeSummary{
		Trials:              trials,
		Count:               n,
		Seed:                seed,
		Mean:                stat.Mean(sorted, nil),
		P5:                  stat.Quantile(0.05, stat.Empirical, sorted, nil),
		P50:                 stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:                 stat.Quantile(0.95, stat.Empirical, sorted, nil),
		ProbabilityNegative: float64(negatives) / float64(n),
	}
	if stats := CalculateStats(sorted); stats != nil {
		summary.StdDev = null.FloatFrom(stats.StdDev)
	}

	return summary
}

// resolveRiskFree produces the per-period series used for alpha and the annual rate used for sharpe
func resolveRiskFree(source Source, loaded []float64, nReturns int, settings models.BacktestSettings) ([]float64, models.RiskFreeSummary, error) {
	if source == nil {
		daily := models.PeriodRate(settings.RiskFreeRate)
		series := make([]float64, nReturns)
		for i := range series {
			series[i] = daily
		}

		return series, models.RiskFreeSummary{
			Source:     models.RiskFreeSourceConstant,
			Periods:    nReturns,
			AnnualRate: settings.RiskFreeRate,
		}, nil
	}

	aligned, err := AlignRiskFree(loaded, nReturns)
	if err != nil {
		return nil, models.RiskFreeSummary{}, fmt.Errorf("risk free %s (maturity %q): %w", source.Name(), settings.Maturity, err)
	}

	summary := models.RiskFreeSummary{
		Source:     models.RiskFreeSourceFile,
		Maturity:   settings.Maturity,
		Periods:    len(loaded),
		AnnualRate: settings.RiskFreeRate,
	}
	switch {
	case len(aligned) > 0:
		summary.AnnualRate = stat.Mean(aligned, nil) * models.TradingDaysPerYear
	case len(loaded) > 0:
		summary.AnnualRate = stat.Mean(loaded, nil) * models.TradingDaysPerYear
	}

	return aligned, summary, nil
}

func loadPriceSource(ctx context.Context, source Source) ([]models.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := source.Open()
	if err != nil {
		return nil, &ingest.IOError{Path: source.Name(), Err: err}
	}
	defer f.Close()

	return ingest.ReadPrices(f, source.Name())
}

func loadRiskFreeSource(ctx context.Context, source Source, maturity string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := source.Open()
	if err != nil {
		return nil, &ingest.IOError{Path: source.Name(), Err: err}
	}
	defer f.Close()

	return ingest.ReadRiskFreeSeries(f, source.Name(), maturity)
}

func summarizeSeries(name string, records []models.PriceRecord, returns []float64) models.SeriesSummary {
	summary := models.SeriesSummary{
		Name:    name,
		Records: len(records),
		Returns: len(returns),
		Stats:   CalculateStats(returns),
	}
	if len(records) > 0 {
		summary.FirstDate = records[0].Date
		summary.LastDate = records[len(records)-1].Date
	}
	return summary
}

// statsFailure explains why mean and volatility could not be computed for returns
func statsFailure(returns []float64) string {
	if len(returns) < 2 {
		return fmt.Sprintf("not enough data points for mean and volatility (%d returns, need at least 2)", len(returns))
	}
	return "returns are not finite, check for zero or non-numeric close prices"
}

// relativeFailure explains why beta or alpha could not be computed for these series
func relativeFailure(asset, benchmark []float64) string {
	switch {
	case len(asset) != len(benchmark):
		return fmt.Sprintf("portfolio and benchmark have different lengths (%d vs %d returns)", len(asset), len(benchmark))
	case len(asset) < 2:
		return fmt.Sprintf("not enough data points (%d returns, need at least 2)", len(asset))
	case !ex.AllFinite(asset) || !ex.AllFinite(benchmark):
		return "returns are not finite, check for zero or non-numeric close prices"
	default:
		return "benchmark returns have zero variance"
	}
}

func applySettingDefaults(settings models.BacktestSettings) models.BacktestSettings {
	if settings.Maturity == "" {
		settings.Maturity = models.DefaultMaturity
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = BatchSize
	}
	return settings
}
