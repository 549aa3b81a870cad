package models

import (
	"time"

	"github.com/guregu/null/v6"
)

const (
	RiskFreeSourceFile     = "file"
	RiskFreeSourceConstant = "constant"
)

// BacktestSettings are the tunables for a single backtest run, shared by the cli and the http api
type BacktestSettings struct {
	Maturity     string  `json:"maturity" validate:"required"`
	RiskFreeRate float64 `json:"riskFreeRate" validate:"gt=-1"`
	Simulations  int     `json:"simulations" validate:"gte=0,lte=1000000"`
	Seed         uint64  `json:"seed"` // 0 picks a random seed
	Workers      int     `json:"workers" validate:"gte=0,lte=64"`
	BatchSize    int     `json:"batchSize" validate:"gte=0"`
}

// BacktestReport is everything a run could compute. Statistics that could not
// be computed are left invalid/nil and explained in Diagnostics.
type BacktestReport struct {
	RunId            string          `json:"runId"`
	Portfolio        SeriesSummary   `json:"portfolio"`
	Benchmark        SeriesSummary   `json:"benchmark"`
	RiskFree         RiskFreeSummary `json:"riskFree"`
	Sharpe           *SharpeSummary  `json:"sharpe"`
	HistoricalSharpe null.Float      `json:"historicalSharpe"`
	Beta             null.Float      `json:"beta"`
	Alpha            null.Float      `json:"alpha"`
	Diagnostics      []string        `json:"diagnostics"`
}

// SeriesSummary describes one loaded price table and its daily log returns
type SeriesSummary struct {
	Name      string       `json:"name"`
	Records   int          `json:"records"`
	Returns   int          `json:"returns"`
	FirstDate time.Time    `json:"firstDate"`
	LastDate  time.Time    `json:"lastDate"`
	Stats     *SeriesStats `json:"stats"`
}

// RiskFreeSummary records where the risk free rate came from and what was used
type RiskFreeSummary struct {
	Source     string  `json:"source"`
	Maturity   string  `json:"maturity,omitempty"`
	Periods    int     `json:"periods"`
	AnnualRate float64 `json:"annualRate"`
}

// SharpeSummary condenses the monte carlo sharpe distribution
type SharpeSummary struct {
	Trials              int        `json:"trials"`
	Count               int        `json:"count"`
	Seed                uint64     `json:"seed"`
	Mean                float64    `json:"mean"`
	StdDev              null.Float `json:"stdDev"`
	P5                  float64    `json:"p5"`
	P50                 float64    `json:"p50"`
	P95                 float64    `json:"p95"`
	ProbabilityNegative float64    `json:"probabilityNegative"`
}
