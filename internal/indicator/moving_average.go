package indicator

import "investment-analyzer/internal/model"

// SMA computes the simple moving average over `period` closes.
// SMA[i] = mean(close[i-period+1..i]) for i >= period-1.
func SMA(bars []model.Bar, period int) (model.Series, error) {
	if err := validateWarmup(len(bars), period); err != nil {
		return nil, err
	}
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	c := closes(bars)
	out := model.NewAbsentSeries(len(bars))
	var sum float64
	for i, v := range c {
		sum += v
		if i >= period {
			sum -= c[i-period]
		}
		if i >= period-1 {
			out[i] = model.Defined(sum / float64(period))
		}
	}
	return out, nil
}

// EMA computes the exponential moving average, seeded by SMA(period) and
// propagated with alpha = 2/(period+1).
func EMA(bars []model.Bar, period int) (model.Series, error) {
	if err := validateWarmup(len(bars), period); err != nil {
		return nil, err
	}
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	c := closes(bars)
	out := model.NewAbsentSeries(len(bars))
	if len(c) < period {
		return out, nil
	}
	alpha := 2.0 / float64(period+1)
	seed := mean(c[:period])
	out[period-1] = model.Defined(seed)
	prev := seed
	for i := period; i < len(c); i++ {
		v := alpha*c[i] + (1-alpha)*prev
		out[i] = model.Defined(v)
		prev = v
	}
	return out, nil
}

// emaFromValues is EMA's recurrence applied to an arbitrary values slice
// (used to compute EMA-of-an-indicator, e.g. the MACD signal line), seeded
// by the SMA of its own first `period` values.
func emaFromValues(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}
	alpha := 2.0 / float64(period+1)
	seed := mean(values[:period])
	out[period-1] = seed
	prev := seed
	for i := period; i < len(values); i++ {
		v := alpha*values[i] + (1-alpha)*prev
		out[i] = v
		prev = v
	}
	return out
}

// WMA computes the weighted moving average over `period` closes, weighting
// 1..period with the most recent bar heaviest.
func WMA(bars []model.Bar, period int) (model.Series, error) {
	if err := validateWarmup(len(bars), period); err != nil {
		return nil, err
	}
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	c := closes(bars)
	out := model.NewAbsentSeries(len(bars))
	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(c); i++ {
		var num float64
		w := 1.0
		for j := i - period + 1; j <= i; j++ {
			num += c[j] * w
			w++
		}
		out[i] = model.Defined(num / denom)
	}
	return out, nil
}
