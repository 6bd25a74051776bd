package indicator

import "investment-analyzer/internal/model"

// ATR computes the Average True Range using Wilder smoothing, the same
// recurrence style as RSI: seeded by a plain mean of the first `period`
// true ranges, then smoothed with factor 1/period.
//
// This is not named in spec.md's indicator list; it is added (see
// SPEC_FULL.md §4.1) as a feed for the composite scorer's volatility
// subscore, alongside Bollinger.
func ATR(bars []model.Bar, period int) (model.Series, error) {
	if err := validateWarmup(len(bars), period); err != nil {
		return nil, err
	}
	n := len(bars)
	out := model.NewAbsentSeries(n)
	if n <= period {
		return out, nil
	}

	tr := make([]float64, n)
	for i := range bars {
		if i == 0 {
			tr[i] = bars[i].High - bars[i].Low
			continue
		}
		tr[i] = trueRange(bars[i], bars[i-1])
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	avg := sum / float64(period)
	out[period] = model.Defined(avg)
	for i := period + 1; i < n; i++ {
		avg = (avg*float64(period-1) + tr[i]) / float64(period)
		out[i] = model.Defined(avg)
	}
	return out, nil
}

func trueRange(cur, prev model.Bar) float64 {
	hl := cur.High - cur.Low
	hc := absf(cur.High - prev.Close)
	lc := absf(cur.Low - prev.Close)
	m := hl
	if hc > m {
		m = hc
	}
	if lc > m {
		m = lc
	}
	return m
}

// ADX computes the Average Directional Index from smoothed +DI/-DI, Wilder
// style. Like ATR, this is an expansion feed for the composite scorer, not
// part of spec.md's mandated indicator list.
func ADX(bars []model.Bar, period int) (model.Series, error) {
	if err := validateWarmup(len(bars), period); err != nil {
		return nil, err
	}
	n := len(bars)
	out := model.NewAbsentSeries(n)
	if n <= 2*period {
		return out, nil
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := bars[i].High - bars[i-1].High
		downMove := bars[i-1].Low - bars[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(bars[i], bars[i-1])
	}

	smooth := func(vals []float64) []float64 {
		s := make([]float64, n)
		var sum float64
		for i := 1; i <= period; i++ {
			sum += vals[i]
		}
		s[period] = sum
		for i := period + 1; i < n; i++ {
			s[i] = s[i-1] - s[i-1]/float64(period) + vals[i]
		}
		return s
	}
	smTR := smooth(tr)
	smPlus := smooth(plusDM)
	smMinus := smooth(minusDM)

	dx := make([]float64, n)
	for i := period; i < n; i++ {
		if smTR[i] == 0 {
			continue
		}
		plusDI := 100 * smPlus[i] / smTR[i]
		minusDI := 100 * smMinus[i] / smTR[i]
		denom := plusDI + minusDI
		if denom == 0 {
			continue
		}
		dx[i] = 100 * absf(plusDI-minusDI) / denom
	}

	firstDX := period
	lastADXStart := firstDX + period
	if lastADXStart >= n {
		return out, nil
	}
	var sum float64
	for i := firstDX; i < firstDX+period; i++ {
		sum += dx[i]
	}
	adx := sum / float64(period)
	out[lastADXStart] = model.Defined(adx)
	for i := lastADXStart + 1; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out[i] = model.Defined(adx)
	}
	return out, nil
}
