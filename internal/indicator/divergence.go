package indicator

import "investment-analyzer/internal/model"

// DivergenceConfig tunes the local-extremum divergence pass shared by RSI,
// MACD-histogram, and OBV divergence detection.
type DivergenceConfig struct {
	// Lookback bounds how far back successive extrema are compared.
	Lookback int
	// MinMagnitudePct is the minimum fractional price move between the two
	// extrema for the divergence to be considered significant.
	MinMagnitudePct float64
	// PivotWindow is the local-window half-width used to classify a bar as
	// a swing high/low (same convention as the VCP detector's swing pass).
	PivotWindow int
}

func DefaultDivergenceConfig() DivergenceConfig {
	return DivergenceConfig{Lookback: 60, MinMagnitudePct: 0.02, PivotWindow: 3}
}

// DivergenceKind labels the direction of a detected divergence.
type DivergenceKind string

const (
	DivergenceNone    DivergenceKind = "none"
	DivergenceBullish DivergenceKind = "bullish" // price makes a lower low, indicator makes a higher low
	DivergenceBearish DivergenceKind = "bearish" // price makes a higher high, indicator makes a lower high
)

// DivergenceResult is the outcome of one divergence pass.
type DivergenceResult struct {
	Kind         DivergenceKind
	PriceIndices [2]int
	IndicatorAt  [2]float64
}

// priceExtrema finds the last two swing highs (if findHighs) or swing lows
// within `lookback` bars of the end of the series, using a PivotWindow-wide
// local comparison.
func priceExtrema(bars []model.Bar, cfg DivergenceConfig, findHighs bool) []int {
	n := len(bars)
	start := n - cfg.Lookback
	if start < cfg.PivotWindow {
		start = cfg.PivotWindow
	}
	var idx []int
	for i := start; i < n-cfg.PivotWindow; i++ {
		isExtreme := true
		for j := i - cfg.PivotWindow; j <= i+cfg.PivotWindow; j++ {
			if j == i || j < 0 || j >= n {
				continue
			}
			if findHighs && bars[j].High > bars[i].High {
				isExtreme = false
				break
			}
			if !findHighs && bars[j].Low < bars[i].Low {
				isExtreme = false
				break
			}
		}
		if isExtreme {
			idx = append(idx, i)
		}
	}
	return idx
}

// detect runs the shared two-extrema comparison: price direction vs.
// indicator direction between the last two extrema of the requested kind.
func detect(bars []model.Bar, series model.Series, cfg DivergenceConfig, findHighs bool, bullKind, bearKind DivergenceKind) DivergenceResult {
	idx := priceExtrema(bars, cfg, findHighs)
	if len(idx) < 2 {
		return DivergenceResult{Kind: DivergenceNone}
	}
	a, b := idx[len(idx)-2], idx[len(idx)-1]

	var priceA, priceB float64
	if findHighs {
		priceA, priceB = bars[a].High, bars[b].High
	} else {
		priceA, priceB = bars[a].Low, bars[b].Low
	}
	indA, okA := series.At(a)
	indB, okB := series.At(b)
	if !okA || !okB || priceA == 0 {
		return DivergenceResult{Kind: DivergenceNone}
	}

	priceMove := (priceB - priceA) / priceA
	if absf(priceMove) < cfg.MinMagnitudePct {
		return DivergenceResult{Kind: DivergenceNone}
	}

	if findHighs {
		// Bearish: price higher high, indicator lower high.
		if priceB > priceA && indB < indA {
			return DivergenceResult{Kind: bearKind, PriceIndices: [2]int{a, b}, IndicatorAt: [2]float64{indA, indB}}
		}
	} else {
		// Bullish: price lower low, indicator higher low.
		if priceB < priceA && indB > indA {
			return DivergenceResult{Kind: bullKind, PriceIndices: [2]int{a, b}, IndicatorAt: [2]float64{indA, indB}}
		}
	}
	return DivergenceResult{Kind: DivergenceNone}
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// RSIDivergence detects bullish/bearish divergence between price and RSI.
func RSIDivergence(bars []model.Bar, rsi model.Series, cfg DivergenceConfig) DivergenceResult {
	bear := detect(bars, rsi, cfg, true, DivergenceBullish, DivergenceBearish)
	if bear.Kind != DivergenceNone {
		return bear
	}
	return detect(bars, rsi, cfg, false, DivergenceBullish, DivergenceBearish)
}

// MACDHistDivergence detects divergence between price and the MACD
// histogram.
func MACDHistDivergence(bars []model.Bar, hist model.Series, cfg DivergenceConfig) DivergenceResult {
	bear := detect(bars, hist, cfg, true, DivergenceBullish, DivergenceBearish)
	if bear.Kind != DivergenceNone {
		return bear
	}
	return detect(bars, hist, cfg, false, DivergenceBullish, DivergenceBearish)
}

// OBVDivergence detects divergence between price and OBV.
func OBVDivergence(bars []model.Bar, obv model.Series, cfg DivergenceConfig) DivergenceResult {
	bear := detect(bars, obv, cfg, true, DivergenceBullish, DivergenceBearish)
	if bear.Kind != DivergenceNone {
		return bear
	}
	return detect(bars, obv, cfg, false, DivergenceBullish, DivergenceBearish)
}
