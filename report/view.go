package report

import (
	ex "mc.backtest/extensions"
	"mc.backtest/models"
)

// view flattens a report for yaml, where absent values must come out as null
type view struct {
	RunId            string       `yaml:"runId"`
	Portfolio        seriesView   `yaml:"portfolio"`
	Benchmark        seriesView   `yaml:"benchmark"`
	RiskFree         riskFreeView `yaml:"riskFree"`
	Sharpe           *sharpeView  `yaml:"sharpe"`
	HistoricalSharpe *float64     `yaml:"historicalSharpe"`
	Beta             *float64     `yaml:"beta"`
	Alpha            *float64     `yaml:"alpha"`
	Diagnostics      []string     `yaml:"diagnostics"`
}

type seriesView struct {
	Name      string   `yaml:"name"`
	Records   int      `yaml:"records"`
	Returns   int      `yaml:"returns"`
	FirstDate string   `yaml:"firstDate,omitempty"`
	LastDate  string   `yaml:"lastDate,omitempty"`
	Mean      *float64 `yaml:"mean"`
	StdDev    *float64 `yaml:"stdDev"`
}

type riskFreeView struct {
	Source     string  `yaml:"source"`
	Maturity   string  `yaml:"maturity,omitempty"`
	Periods    int     `yaml:"periods"`
	AnnualRate float64 `yaml:"annualRate"`
}

type sharpeView struct {
	Trials              int      `yaml:"trials"`
	Count               int      `yaml:"count"`
	Seed                uint64   `yaml:"seed"`
	Mean                float64  `yaml:"mean"`
	StdDev              *float64 `yaml:"stdDev"`
	P5                  float64  `yaml:"p5"`
	P50                 float64  `yaml:"p50"`
	P95                 float64  `yaml:"p95"`
	ProbabilityNegative float64  `yaml:"probabilityNegative"`
}

func newView(rep *models.BacktestReport) view {
	v := view{
		RunId:     rep.RunId,
		Portfolio: newSeriesView(rep.Portfolio),
		Benchmark: newSeriesView(rep.Benchmark),
		RiskFree: riskFreeView{
			Source:     rep.RiskFree.Source,
			Maturity:   rep.RiskFree.Maturity,
			Periods:    rep.RiskFree.Periods,
			AnnualRate: rep.RiskFree.AnnualRate,
		},
		HistoricalSharpe: rep.HistoricalSharpe.Ptr(),
		Beta:             rep.Beta.Ptr(),
		Alpha:            rep.Alpha.Ptr(),
		Diagnostics:      rep.Diagnostics,
	}

	if s := rep.Sharpe; s != nil {
		v.Sharpe = &sharpeView{
			Trials:              s.Trials,
			Count:               s.Count,
			Seed:                s.Seed,
			Mean:                s.Mean,
			StdDev:              s.StdDev.Ptr(),
			P5:                  s.P5,
			P50:                 s.P50,
			P95:                 s.P95,
			ProbabilityNegative: s.ProbabilityNegative,
		}
	}

	return v
}

func newSeriesView(s models.SeriesSummary) seriesView {
	v := seriesView{
		Name:    s.Name,
		Records: s.Records,
		Returns: s.Returns,
	}
	if s.Records > 0 {
		v.FirstDate = ex.FmtShort(s.FirstDate)
		v.LastDate = ex.FmtShort(s.LastDate)
	}
	if s.Stats != nil {
		v.Mean = &s.Stats.Mean
		v.StdDev = &s.Stats.StdDev
	}
	return v
}
