package core

import (
	"math"

	"mc.backtest/models"
)

// CalculateReturns turns a price series into daily log returns, ln(close[i] / close[i-1]).
// Records must already be in chronological order, they are not sorted here.
// Fewer than two records give an empty series, minimum lengths are the consumer's concern.
func CalculateReturns(records []models.PriceRecord) []float64 {
	if len(records) < 2 {
		return []float64{}
	}

	closes := models.Closes(records)
	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i] / closes[i-1])
	}

	return returns
}
