// Package indicator computes SMA/EMA/WMA, RSI, Stochastic RSI, MACD,
// Bollinger Bands, OBV, ATR/ADX, and their divergence/cross derivatives over
// an ordered bar series (§4.1). Every function is pure and stateless: given
// the same bars and config it always returns the same model.Series. Results
// before the required warm-up window are model.Absent, never zero-filled.
package indicator

import (
	"math"

	"investment-analyzer/internal/apperr"
	"investment-analyzer/internal/model"
)

func closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func highs(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

func lows(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

func volumes(bars []model.Bar) []int64 {
	out := make([]int64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

func validateWarmup(n, period int) error {
	if period <= 0 {
		return apperr.New(apperr.InvalidInput, "period must be positive")
	}
	if n == 0 {
		return nil
	}
	return nil
}
