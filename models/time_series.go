package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// PriceRecord is one daily row of a price table. Records are expected in
// chronological order; nothing downstream re-sorts them.
type PriceRecord struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// RateRow is one row of a risk-free rate table. Maturity cells that are
// missing or unparseable are stored as an invalid null.Float.
type RateRow struct {
	Date       time.Time
	Maturities map[string]null.Float
}

// Maturity returns the value for a maturity label, invalid when the row has no usable cell
func (r RateRow) Maturity(label string) null.Float {
	v, ok := r.Maturities[label]
	if !ok {
		return null.Float{}
	}
	return v
}

// Closes pulls the close price out of each record, keeping order
func Closes(records []PriceRecord) []float64 {
	res := make([]float64, len(records))
	for i, r := range records {
		res[i] = r.Close
	}
	return res
}
