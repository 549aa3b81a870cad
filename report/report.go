package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/guregu/null/v6"
	"gopkg.in/yaml.v3"

	ex "mc.backtest/extensions"
	"mc.backtest/models"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Write renders rep as text, json or yaml
func Write(w io.Writer, rep *models.BacktestReport, format string) error {
	if rep == nil {
		return errors.New("no report to write")
	}

	switch strings.ToLower(format) {
	case "", "text":
		return writeText(w, rep)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newView(rep)); err != nil {
			return fmt.Errorf("error encoding yaml report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func writeText(w io.Writer, rep *models.BacktestReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	fmt.Fprintf(tw, "Backtest %s\n", rep.RunId)
	writeSeries(tw, "Portfolio", rep.Portfolio)
	writeSeries(tw, "Benchmark", rep.Benchmark)

	rf := rep.RiskFree
	if rf.Source == models.RiskFreeSourceFile {
		fmt.Fprintf(tw, "Risk Free: %s maturity, %d periods, %.4f%% annual\n", rf.Maturity, rf.Periods, rf.AnnualRate*100)
	} else {
		fmt.Fprintf(tw, "Risk Free: constant, %.4f%% annual\n", rf.AnnualRate*100)
	}

	if s := rep.Sharpe; s != nil {
		fmt.Fprintf(tw, "Monte Carlo Sharpe (%d of %d trials, seed %d)\n", s.Count, s.Trials, s.Seed)
		fmt.Fprintf(tw, "   - Monte Carlo Average SR:\t%.4f\n", s.Mean)
		fmt.Fprintf(tw, "   - Std Deviation:\t%s\n", formatNull(s.StdDev, 4))
		fmt.Fprintf(tw, "   - P5 / P50 / P95:\t%.4f / %.4f / %.4f\n", s.P5, s.P50, s.P95)
		fmt.Fprintf(tw, "   - Probability Negative:\t%.2f%%\n", s.ProbabilityNegative*100)
	} else {
		fmt.Fprintln(tw, "Monte Carlo Sharpe: n/a")
	}

	fmt.Fprintf(tw, "Historical Sharpe:\t%s\n", formatNull(rep.HistoricalSharpe, 4))
	fmt.Fprintf(tw, "Beta:\t%s\n", formatNull(rep.Beta, 4))
	fmt.Fprintf(tw, "Alpha (daily):\t%s\n", formatNull(rep.Alpha, 6))

	if len(rep.Diagnostics) > 0 {
		fmt.Fprintln(tw, "Diagnostics:")
		for _, d := range rep.Diagnostics {
			fmt.Fprintf(tw, "   - %s\n", d)
		}
	}

	return tw.Flush()
}

func writeSeries(w io.Writer, label string, s models.SeriesSummary) {
	fmt.Fprintf(w, "%s: %s (%d records, %d returns", label, s.Name, s.Records, s.Returns)
	if s.Records > 0 {
		fmt.Fprintf(w, ", %s to %s", ex.FmtShort(s.FirstDate), ex.FmtShort(s.LastDate))
	}
	fmt.Fprintln(w, ")")

	if s.Stats == nil {
		fmt.Fprintln(w, "   - Not enough data points")
		return
	}
	fmt.Fprintf(w, "   - Average Daily Return:\t%.6f\n", s.Stats.Mean)
	fmt.Fprintf(w, "   - Std Deviation (Volatility):\t%.6f\n", s.Stats.StdDev)
}

func formatNull(f null.Float, precision int) string {
	if !f.Valid {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", precision, f.Float64)
}
