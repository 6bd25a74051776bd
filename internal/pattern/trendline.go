package pattern

import "investment-analyzer/internal/model"

// TrendLine is a fitted line through confirmed swing points.
type TrendLine struct {
	Direction string // "up" | "down"
	Slope     float64
	Intercept float64
	R2        float64
	Touches   int
	Breaches  int
	StartIdx  int
	EndIdx    int
}

// TrendLineConfig tunes trend line fitting.
type TrendLineConfig struct {
	SwingWindow int
	MaxBreaches int
	MinTouches  int
}

func DefaultTrendLineConfig() TrendLineConfig {
	return TrendLineConfig{SwingWindow: 4, MaxBreaches: 2, MinTouches: 2}
}

// TrendLines fits an uptrend line through confirmed lows and a downtrend
// line through confirmed highs, scoring each by R^2 and touch count, and
// rejecting lines breached more than MaxBreaches times.
func TrendLines(bars []model.Bar, cfg TrendLineConfig) (up, down *TrendLine) {
	highs, lows := localExtremaIndices(bars, cfg.SwingWindow)

	if len(lows) >= cfg.MinTouches {
		if tl := fitLine(bars, lows, false, cfg); tl != nil {
			up = tl
		}
	}
	if len(highs) >= cfg.MinTouches {
		if tl := fitLine(bars, highs, true, cfg); tl != nil {
			down = tl
		}
	}
	return up, down
}

// fitLine performs a least-squares fit of index->price over the given swing
// indices (lows for an uptrend, highs for a downtrend), then counts
// breaches across the *entire* bar range.
func fitLine(bars []model.Bar, idxs []int, useHighs bool, cfg TrendLineConfig) *TrendLine {
	n := float64(len(idxs))
	if n < 2 {
		return nil
	}
	var sumX, sumY, sumXY, sumXX float64
	for _, i := range idxs {
		x := float64(i)
		y := priceAt(bars, i, useHighs)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return nil
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for _, i := range idxs {
		x := float64(i)
		y := priceAt(bars, i, useHighs)
		pred := slope*x + intercept
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}
	r2 := 1.0
	if ssTot != 0 {
		r2 = 1 - ssRes/ssTot
	}

	breaches := 0
	for i := range bars {
		pred := slope*float64(i) + intercept
		price := priceAt(bars, i, useHighs)
		if useHighs {
			if price > pred*1.002 {
				breaches++
			}
		} else {
			if price < pred*0.998 {
				breaches++
			}
		}
	}
	if breaches > cfg.MaxBreaches {
		return nil
	}

	dir := "up"
	if useHighs {
		dir = "down"
	}
	return &TrendLine{
		Direction: dir,
		Slope:     slope,
		Intercept: intercept,
		R2:        r2,
		Touches:   len(idxs),
		Breaches:  breaches,
		StartIdx:  idxs[0],
		EndIdx:    idxs[len(idxs)-1],
	}
}

func priceAt(bars []model.Bar, i int, useHigh bool) float64 {
	if useHigh {
		return bars[i].High
	}
	return bars[i].Low
}
