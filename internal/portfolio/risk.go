package portfolio

import (
	"math"
	"sort"
)

// PerformanceRisk is an optional VaR/ES/Sharpe view computed from a caller
// supplied daily portfolio valuation history. Callers without such a history
// simply don't call ComputePerformanceRisk.
type PerformanceRisk struct {
	Var95         float64 // reported as a positive loss magnitude
	Var99         float64
	ES95          float64
	ES99          float64
	Sharpe        float64 // annualized, rf=0, sqrt(252)
	WorstDayLoss  float64
	SampleDays    int
	LowSample     bool // true when SampleDays < 20
	Var99Reliable bool // false when SampleDays < 30
}

const (
	minVaR99Days = 30
	lowSampleCutoff = 20
)

// ComputePerformanceRisk derives VaR/ES/Sharpe figures from an ordered series
// of daily portfolio valuations. For samples under 20 days, empirical
// quantiles degenerate, so a Cornish-Fisher expansion accounts for skew and
// kurtosis in the return distribution instead.
func ComputePerformanceRisk(dailyValues []float64) *PerformanceRisk {
	if len(dailyValues) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(dailyValues)-1)
	for i := 1; i < len(dailyValues); i++ {
		prev := dailyValues[i-1]
		if prev == 0 {
			continue
		}
		returns = append(returns, (dailyValues[i]-prev)/prev)
	}
	n := len(returns)
	if n < 2 {
		return nil
	}

	var95, var99, es95, es99 := varEs(returns)
	worst := minOf(returns)

	mu := mean(returns)
	sigma := math.Sqrt(variance(returns))
	sharpe := 0.0
	if sigma > 0 {
		sharpe = mu / sigma * math.Sqrt(252)
	}

	return &PerformanceRisk{
		Var95:         -var95,
		Var99:         -var99,
		ES95:          -es95,
		ES99:          -es99,
		Sharpe:        sharpe,
		WorstDayLoss:  -worst,
		SampleDays:    n,
		LowSample:     n < lowSampleCutoff,
		Var99Reliable: n >= minVaR99Days,
	}
}

func varEs(returns []float64) (var95, var99, es95, es99 float64) {
	n := len(returns)
	if n < lowSampleCutoff {
		mu := mean(returns)
		sigma := math.Sqrt(variance(returns))
		if sigma <= 0 {
			return mu, mu, mu, mu
		}
		skew := skewness(returns, mu, sigma)
		kurt := excessKurtosis(returns, mu, sigma)

		const z95 = -1.6449
		const z99 = -2.3263
		cf95 := cornishFisher(z95, skew, kurt)
		cf99 := cornishFisher(z99, skew, kurt)

		var95 = mu + cf95*sigma
		var99 = mu + cf99*sigma
		es95 = mu - sigma*normalPDF(cf95)/0.05
		es99 = mu - sigma*normalPDF(cf99)/0.01
		return
	}

	sorted := make([]float64, n)
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx95 := clampIdx(int(math.Floor(0.05*float64(n))), n)
	idx99 := clampIdx(int(math.Floor(0.01*float64(n))), n)
	var95 = sorted[idx95]
	var99 = sorted[idx99]
	es95 = mean(sorted[:idx95+1])
	es99 = mean(sorted[:idx99+1])
	return
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func variance(x []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	mu := mean(x)
	var sum float64
	for _, v := range x {
		d := v - mu
		sum += d * d
	}
	return sum / float64(len(x)-1)
}

func skewness(x []float64, mu, sigma float64) float64 {
	n := len(x)
	if n < 3 || sigma <= 0 {
		return 0
	}
	var m3 float64
	for _, v := range x {
		d := (v - mu) / sigma
		m3 += d * d * d
	}
	return float64(n) / (float64(n-1) * float64(n-2)) * m3
}

func excessKurtosis(x []float64, mu, sigma float64) float64 {
	n := len(x)
	if n < 4 || sigma <= 0 {
		return 0
	}
	var m4 float64
	for _, v := range x {
		d := (v - mu) / sigma
		m4 += d * d * d * d
	}
	n1 := float64(n)
	return (n1*(n1+1)/((n1-1)*(n1-2)*(n1-3)))*m4 - 3*(n1-1)*(n1-1)/((n1-2)*(n1-3))
}

// cornishFisher adjusts a normal quantile z for skewness and excess kurtosis.
func cornishFisher(z, skew, excessKurt float64) float64 {
	z2 := z * z
	z3 := z2 * z
	return z +
		(z2-1)*skew/6 +
		(z3-3*z)*excessKurt/24 -
		(2*z3-5*z)*skew*skew/36
}

func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func minOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
