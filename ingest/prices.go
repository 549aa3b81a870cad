package ingest

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"mc.backtest/models"
)

const readerSource = "<reader>"

// priceColumns are the header names a price table must carry, any order, any case
var priceColumns = []string{"date", "open", "high", "low", "close", "volume"}

// LoadPricesFromReader parses a price table (date, open, high, low, close, volume) from r.
// Row order is preserved and assumed chronological; rows are never re-sorted.
// An empty stream, or one holding only a header, yields no records and no error.
// Any row that does not fully parse aborts the read with a *MalformedRecordError.
//
// It is safe to call with arbitrary bytes and only ever returns records or an error.
func LoadPricesFromReader(r io.Reader) ([]models.PriceRecord, error) {
	return ReadPrices(r, readerSource)
}

// LoadPrices opens path and parses it as a price table
func LoadPrices(path string) ([]models.PriceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadPrices(f, path)
}

// ReadPrices is LoadPricesFromReader with a source name used in error messages
func ReadPrices(r io.Reader, source string) ([]models.PriceRecord, error) {
	tr := newTableReader(r, source)

	ok, err := tr.readHeader()
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.PriceRecord{}, nil
	}

	// a header missing a column only matters once there is a row to read
	idx := make([]int, len(priceColumns))
	missing := ""
	for i, name := range priceColumns {
		col, found := tr.column(name)
		if !found && missing == "" {
			missing = name
		}
		idx[i] = col
	}

	records := []models.PriceRecord{}
	for {
		record, line, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if missing != "" {
			return nil, tr.malformed(1, missing, "", fmt.Errorf("missing header column"))
		}

		rec, err := parsePriceRecord(tr, record, line, idx)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

func parsePriceRecord(tr *tableReader, record []string, line int, idx []int) (models.PriceRecord, error) {
	var rec models.PriceRecord

	raw, ok := cell(record, idx[0])
	if !ok {
		return rec, tr.malformed(line, "date", "", fmt.Errorf("missing field"))
	}
	date, err := ParseDate(raw)
	if err != nil {
		return rec, tr.malformed(line, "date", raw, err)
	}
	rec.Date = date

	targets := []*float64{&rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume}
	for i, target := range targets {
		name := priceColumns[i+1]
		raw, ok := cell(record, idx[i+1])
		if !ok {
			return rec, tr.malformed(line, name, "", fmt.Errorf("missing field"))
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return rec, tr.malformed(line, name, raw, fmt.Errorf("not a number"))
		}
		*target = v
	}

	return rec, nil
}
