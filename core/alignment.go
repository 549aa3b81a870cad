package core

import (
	"errors"

	ex "mc.backtest/extensions"
)

// ErrEmptyRiskFree is returned when an empty risk free series has to fill a non-empty return series
var ErrEmptyRiskFree = errors.New("risk free series is empty, nothing to align to the return series")

// AlignRiskFree fits a per-period risk free series to targetLength: longer series are cut
// to their prefix, shorter ones are padded by repeating the final rate. The input is not modified.
func AlignRiskFree(riskFree []float64, targetLength int) ([]float64, error) {
	if targetLength <= 0 {
		return []float64{}, nil
	}

	last, ok := ex.Last(riskFree)
	if !ok {
		return nil, ErrEmptyRiskFree
	}

	aligned := make([]float64, targetLength)
	n := copy(aligned, riskFree)
	for i := n; i < targetLength; i++ {
		aligned[i] = last
	}

	return aligned, nil
}
