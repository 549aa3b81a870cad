package ingest

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/guregu/null/v6"

	ex "mc.backtest/extensions"
	"mc.backtest/models"
)

// LoadRateRowsFromReader parses a treasury style table: a date column plus any number of
// maturity columns. Rows may be shorter or longer than the header. Maturity cells that are
// blank or not numbers become invalid values, only a bad or missing date fails the read.
func LoadRateRowsFromReader(r io.Reader) ([]models.RateRow, error) {
	return loadRateRows(r, readerSource)
}

// LoadRiskFreeSeriesFromReader parses a rate table and extracts the maturity column as
// a per-period decimal series. Rows without a usable value for the maturity are skipped.
func LoadRiskFreeSeriesFromReader(r io.Reader, maturity string) ([]float64, error) {
	return ReadRiskFreeSeries(r, readerSource, maturity)
}

// ReadRiskFreeSeries is LoadRiskFreeSeriesFromReader with a source name used in error messages
func ReadRiskFreeSeries(r io.Reader, source string, maturity string) ([]float64, error) {
	rows, err := loadRateRows(r, source)
	if err != nil {
		return nil, err
	}
	return ExtractRiskFreeSeries(rows, maturity), nil
}

// LoadRiskFreeSeries opens path and extracts the maturity column as a per-period series
func LoadRiskFreeSeries(path string, maturity string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadRiskFreeSeries(f, path, maturity)
}

// ExtractRiskFreeSeries converts the annual percentage in the maturity column of each row
// into a compounded per-period decimal rate. The result can be shorter than rows.
func ExtractRiskFreeSeries(rows []models.RateRow, maturity string) []float64 {
	res := make([]float64, 0, len(rows))
	for _, row := range rows {
		rate := row.Maturity(maturity)
		if !rate.Valid {
			continue
		}
		res = append(res, models.PeriodRate(rate.Float64/100))
	}
	return res
}

func loadRateRows(r io.Reader, source string) ([]models.RateRow, error) {
	tr := newTableReader(r, source)

	ok, err := tr.readHeader()
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.RateRow{}, nil
	}

	dateIdx, found := tr.column("date")
	if !found {
		return nil, tr.malformed(1, "date", "", fmt.Errorf("missing header column"))
	}

	rows := []models.RateRow{}
	for {
		record, line, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		raw, ok := cell(record, dateIdx)
		if !ok {
			return nil, tr.malformed(line, "date", "", fmt.Errorf("missing field"))
		}
		date, err := ParseDate(raw)
		if err != nil {
			return nil, tr.malformed(line, "date", raw, err)
		}

		row := models.RateRow{
			Date:       date,
			Maturities: make(map[string]null.Float, len(tr.labels)),
		}
		for i, label := range tr.labels {
			if i == dateIdx || label == "" {
				continue
			}
			row.Maturities[label] = parseOptionalFloat(record, i)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseOptionalFloat reads a cell that may be absent, blank, garbage or NaN
func parseOptionalFloat(record []string, idx int) null.Float {
	raw, ok := cell(record, idx)
	if !ok || raw == "" {
		return null.Float{}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !ex.IsFinite(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
