// Package pattern detects geometric chart patterns, support/resistance
// levels, and trend lines over an ordered bar series (§4.3). Each detector
// is a pure function: swings in, a typed descriptor out.
package pattern

import (
	"math"
	"sort"

	"investment-analyzer/internal/model"
)

// Level is a clustered support or resistance price level.
type Level struct {
	Price    float64
	Touches  int
	Strength float64 // touches * average recency weight of those touches
	Kind     string  // "support" | "resistance"
}

// SRConfig tunes support/resistance clustering.
type SRConfig struct {
	SwingWindow       int
	TolerancePct      float64 // cluster radius as a fraction of price
	TopK              int
	RecencyHalfLifeBars float64
}

func DefaultSRConfig() SRConfig {
	return SRConfig{SwingWindow: 4, TolerancePct: 0.015, TopK: 3, RecencyHalfLifeBars: 60}
}

// SupportResistance clusters local extrema by price proximity and returns
// the top-k supports below the last close and resistances above it.
func SupportResistance(bars []model.Bar, cfg SRConfig) (supports, resistances []Level) {
	if len(bars) == 0 {
		return nil, nil
	}
	swingsHigh, swingsLow := localExtremaIndices(bars, cfg.SwingWindow)
	lastClose := bars[len(bars)-1].Close
	n := len(bars)

	resistances = clusterLevels(bars, swingsHigh, func(i int) float64 { return bars[i].High }, cfg, n, "resistance", func(p float64) bool { return p > lastClose })
	supports = clusterLevels(bars, swingsLow, func(i int) float64 { return bars[i].Low }, cfg, n, "support", func(p float64) bool { return p < lastClose })

	sort.Slice(resistances, func(i, j int) bool { return resistances[i].Strength > resistances[j].Strength })
	sort.Slice(supports, func(i, j int) bool { return supports[i].Strength > supports[j].Strength })
	if len(resistances) > cfg.TopK {
		resistances = resistances[:cfg.TopK]
	}
	if len(supports) > cfg.TopK {
		supports = supports[:cfg.TopK]
	}
	return supports, resistances
}

func clusterLevels(bars []model.Bar, idxs []int, price func(int) float64, cfg SRConfig, n int, kind string, keep func(float64) bool) []Level {
	type touch struct {
		idx   int
		price float64
	}
	touches := make([]touch, 0, len(idxs))
	for _, i := range idxs {
		p := price(i)
		if keep(p) {
			touches = append(touches, touch{idx: i, price: p})
		}
	}
	sort.Slice(touches, func(i, j int) bool { return touches[i].price < touches[j].price })

	var levels []Level
	i := 0
	for i < len(touches) {
		j := i
		sum := 0.0
		count := 0
		var recency float64
		for j < len(touches) && (touches[j].price-touches[i].price) <= cfg.TolerancePct*touches[i].price {
			sum += touches[j].price
			count++
			age := float64(n - 1 - touches[j].idx)
			recency += recencyWeight(age, cfg.RecencyHalfLifeBars)
			j++
		}
		avg := sum / float64(count)
		recency /= float64(count)
		levels = append(levels, Level{
			Price:    avg,
			Touches:  count,
			Strength: float64(count) * recency,
			Kind:     kind,
		})
		i = j
	}
	return levels
}

func recencyWeight(ageBars, halfLife float64) float64 {
	if halfLife <= 0 {
		return 1
	}
	// Exponential decay: weight halves every halfLife bars.
	return math.Exp2(-ageBars / halfLife)
}

func localExtremaIndices(bars []model.Bar, window int) (highs, lows []int) {
	n := len(bars)
	for i := window; i < n-window; i++ {
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if j == i {
				continue
			}
			if bars[j].High > bars[i].High {
				isHigh = false
			}
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, i)
		}
		if isLow {
			lows = append(lows, i)
		}
	}
	return highs, lows
}
