// Package score combines indicator and pattern outputs into a single
// symbol-level composite recommendation (§4.8).
package score

import (
	"investment-analyzer/internal/indicator"
	"investment-analyzer/internal/model"
	"investment-analyzer/internal/vcp"
)

// Rating is the coarse recommendation band derived from the composite score.
type Rating string

const (
	RatingStrongBuy  Rating = "strong_buy"
	RatingBuy        Rating = "buy"
	RatingHold       Rating = "hold"
	RatingSell       Rating = "sell"
	RatingStrongSell Rating = "strong_sell"
)

// Weights tunes the composite aggregation. Defaults per spec.md §4.8.
type Weights struct {
	Trend      float64
	Momentum   float64
	Volatility float64
	Volume     float64
	Pattern    float64
}

func DefaultWeights() Weights {
	return Weights{Trend: 30, Momentum: 20, Volatility: 10, Volume: 15, Pattern: 25}
}

// Subscores holds each [0,100] dimension feeding the composite.
type Subscores struct {
	Trend      float64
	Momentum   float64
	Volatility float64
	Volume     float64
	Pattern    float64
}

// Result is the full composite scoring outcome for one symbol.
type Result struct {
	Subscores Subscores
	Composite float64
	Rating    Rating
}

// Window is the default lookback for scoring, per spec.md §4.8.
const Window = 120

// Score computes the composite recommendation over the trailing Window bars
// of the given series (or the whole series if shorter).
func Score(bars []model.Bar, weights Weights) (Result, error) {
	if err := model.ValidateSeries(bars); err != nil {
		return Result{}, err
	}
	window := bars
	if len(bars) > Window {
		window = bars[len(bars)-Window:]
	}

	trend, err := trendScore(window)
	if err != nil {
		return Result{}, err
	}
	momentum, err := momentumScore(window)
	if err != nil {
		return Result{}, err
	}
	volatility, err := volatilityScore(window)
	if err != nil {
		return Result{}, err
	}
	volume, err := volumeScore(window)
	if err != nil {
		return Result{}, err
	}
	pattern, err := patternScore(window)
	if err != nil {
		return Result{}, err
	}

	sub := Subscores{Trend: trend, Momentum: momentum, Volatility: volatility, Volume: volume, Pattern: pattern}
	totalWeight := weights.Trend + weights.Momentum + weights.Volatility + weights.Volume + weights.Pattern
	composite := 0.0
	if totalWeight > 0 {
		composite = (sub.Trend*weights.Trend + sub.Momentum*weights.Momentum + sub.Volatility*weights.Volatility +
			sub.Volume*weights.Volume + sub.Pattern*weights.Pattern) / totalWeight
	}

	return Result{Subscores: sub, Composite: composite, Rating: ratingFor(composite)}, nil
}

func ratingFor(composite float64) Rating {
	switch {
	case composite >= 75:
		return RatingStrongBuy
	case composite >= 60:
		return RatingBuy
	case composite >= 45:
		return RatingHold
	case composite >= 25:
		return RatingSell
	default:
		return RatingStrongSell
	}
}

// trendScore rewards price above a rising MA20 and MA alignment (MA5 > MA20 > MA60).
func trendScore(bars []model.Bar) (float64, error) {
	n := len(bars)
	if n < 20 {
		return 50, nil
	}
	ma20, err := indicator.SMA(bars, 20)
	if err != nil {
		return 50, nil
	}
	last := n - 1
	ma20Val, ok := ma20.At(last)
	if !ok {
		return 50, nil
	}
	score := 50.0
	closeLast := bars[last].Close
	if closeLast > ma20Val {
		score += 20
	} else {
		score -= 20
	}
	if prevVal, prevOK := ma20.At(last - 1); prevOK {
		if ma20Val > prevVal {
			score += 15
		} else if ma20Val < prevVal {
			score -= 15
		}
	}
	if n >= 60 {
		ma5, err5 := indicator.SMA(bars, 5)
		ma60, err60 := indicator.SMA(bars, 60)
		if err5 == nil && err60 == nil {
			v5, ok5 := ma5.At(last)
			v60, ok60 := ma60.At(last)
			if ok5 && ok60 {
				if v5 > ma20Val && ma20Val > v60 {
					score += 15
				} else if v5 < ma20Val && ma20Val < v60 {
					score -= 15
				}
			}
		}
	}
	return clamp(score), nil
}

// momentumScore rewards a healthy RSI band and a bullish, above-zero MACD state.
func momentumScore(bars []model.Bar) (float64, error) {
	n := len(bars)
	if n < 15 {
		return 50, nil
	}
	score := 50.0

	rsi, err := indicator.RSI(bars, 14)
	if err == nil {
		if v, ok := rsi.At(n - 1); ok {
			switch {
			case v >= 50 && v < 70:
				score += 20
			case v >= 70:
				score += 5 // overbought: momentum present but risk elevated
			case v < 30:
				score -= 20
			default:
				score -= 5
			}
		}
	}

	macd, err := indicator.MACD(bars, indicator.DefaultMACDConfig())
	if err == nil {
		if macdVal, ok := macd.Macd.At(n - 1); ok {
			if cross := macd.Crossover[n-1]; cross > 0 {
				score += 15
			} else if cross < 0 {
				score -= 15
			}
			if macdVal > 0 {
				score += 15
			} else {
				score -= 15
			}
		}
	}

	return clamp(score), nil
}

// volatilityScore rewards a moderate Bollinger band position and penalizes
// an extended squeeze (low directional information) or band-edge extremes.
func volatilityScore(bars []model.Bar) (float64, error) {
	n := len(bars)
	if n < 20 {
		return 50, nil
	}
	bb, err := indicator.Bollinger(bars, indicator.DefaultBollingerConfig())
	if err != nil {
		return 50, nil
	}
	mid, midOK := bb.Middle.At(n - 1)
	up, upOK := bb.Upper.At(n - 1)
	lo, loOK := bb.Lower.At(n - 1)
	if !midOK || !upOK || !loOK || mid == 0 {
		return 50, nil
	}
	closeLast := bars[n-1].Close
	score := 50.0
	width := up - lo
	if width > 0 {
		position := (closeLast - lo) / width
		switch {
		case position > 0.8:
			score -= 10
		case position < 0.2:
			score -= 10
		default:
			score += 10
		}
	}
	if bb.Squeeze[n-1] {
		score -= 10
	}

	// ATR/ADX are optional contributors (not part of the Bollinger-based
	// primary signal above): ATR flags excessive or dead ranges, ADX
	// rewards a confirmed trend over directionless chop.
	if atr, err := indicator.ATR(bars, 14); err == nil && closeLast != 0 {
		if v, ok := atr.At(n - 1); ok {
			atrPct := v / closeLast
			switch {
			case atrPct > 0.06:
				score -= 10 // excessive volatility
			case atrPct < 0.01:
				score -= 5 // too quiet, little opportunity
			}
		}
	}
	if adx, err := indicator.ADX(bars, 14); err == nil {
		if v, ok := adx.At(n - 1); ok && v >= 25 {
			score += 10 // trending, not just chopping
		}
	}

	return clamp(score), nil
}

// volumeScore rewards an OBV that is trending in the same direction as price
// over the window (no divergence).
func volumeScore(bars []model.Bar) (float64, error) {
	n := len(bars)
	if n < 10 {
		return 50, nil
	}
	obv, err := indicator.OBV(bars)
	if err != nil || len(obv) == 0 {
		return 50, nil
	}
	lookback := 10
	obvLast, obvOK := obv.At(n - 1)
	obvPrev, obvPrevOK := obv.At(n - 1 - lookback)
	if !obvOK || !obvPrevOK {
		return 50, nil
	}
	priceDelta := bars[n-1].Close - bars[n-1-lookback].Close
	obvDelta := obvLast - obvPrev

	score := 50.0
	switch {
	case priceDelta > 0 && obvDelta > 0:
		score += 20
	case priceDelta < 0 && obvDelta < 0:
		score += 10 // confirms down move; not penalized for being bearish, volume aligns
	case priceDelta > 0 && obvDelta < 0:
		score -= 20 // bearish divergence
	case priceDelta < 0 && obvDelta > 0:
		score -= 10 // accumulation into weakness
	}
	return clamp(score), nil
}

// patternScore is the VCP detector's score alone (50 when detection fails
// or finds no contraction); the other pattern detectors do not contribute.
func patternScore(bars []model.Bar) (float64, error) {
	res, err := vcp.Detect(bars, vcp.DefaultConfig())
	if err != nil {
		return 50, nil
	}
	if len(res.Contractions) == 0 {
		return 50, nil
	}
	return clamp(res.Score), nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
