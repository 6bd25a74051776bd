package indicator

import "investment-analyzer/internal/model"

// RSI computes the Relative Strength Index with Wilder smoothing:
// gains/losses are averaged with smoothing factor 1/period;
// RSI = 100 - 100/(1+RS), RS = avgGain/avgLoss; avgLoss=0 => RSI=100,
// except a flat stretch (avgGain=avgLoss=0) => RSI=50.
func RSI(bars []model.Bar, period int) (model.Series, error) {
	if err := validateWarmup(len(bars), period); err != nil {
		return nil, err
	}
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	c := closes(bars)
	out := model.NewAbsentSeries(len(bars))
	if len(c) <= period {
		return out, nil
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		d := c[i] - c[i-1]
		if d > 0 {
			gainSum += d
		} else {
			lossSum += -d
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = model.Defined(rsiFromAverages(avgGain, avgLoss))

	for i := period + 1; i < len(c); i++ {
		d := c[i] - c[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = model.Defined(rsiFromAverages(avgGain, avgLoss))
	}
	return out, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// StochRSIConfig configures the Stochastic RSI computation.
type StochRSIConfig struct {
	RSIPeriod    int
	KWindow      int
	SmoothPeriod int
}

func DefaultStochRSIConfig() StochRSIConfig {
	return StochRSIConfig{RSIPeriod: 14, KWindow: 14, SmoothPeriod: 3}
}

// StochRSI computes (RSI - min(RSI,k)) / (max(RSI,k) - min(RSI,k)) over a
// k-window of the underlying RSI series, then smooths by SmoothPeriod via
// SMA. Returns values in [0,1] once both layers have warmed up.
func StochRSI(bars []model.Bar, cfg StochRSIConfig) (model.Series, error) {
	rsi, err := RSI(bars, cfg.RSIPeriod)
	if err != nil {
		return nil, err
	}
	raw := model.NewAbsentSeries(len(bars))
	for i := range bars {
		if i < cfg.KWindow-1 {
			continue
		}
		window := make([]float64, 0, cfg.KWindow)
		ok := true
		for j := i - cfg.KWindow + 1; j <= i; j++ {
			v, defined := rsi.At(j)
			if !defined {
				ok = false
				break
			}
			window = append(window, v)
		}
		if !ok {
			continue
		}
		lo := minFloat(window)
		hi := maxFloat(window)
		cur, _ := rsi.At(i)
		if hi == lo {
			raw[i] = model.Defined(0)
			continue
		}
		raw[i] = model.Defined((cur - lo) / (hi - lo))
	}

	if cfg.SmoothPeriod <= 1 {
		return raw, nil
	}
	out := model.NewAbsentSeries(len(bars))
	for i := range bars {
		if i < cfg.SmoothPeriod-1 {
			continue
		}
		window := make([]float64, 0, cfg.SmoothPeriod)
		ok := true
		for j := i - cfg.SmoothPeriod + 1; j <= i; j++ {
			v, defined := raw.At(j)
			if !defined {
				ok = false
				break
			}
			window = append(window, v)
		}
		if ok {
			out[i] = model.Defined(mean(window))
		}
	}
	return out, nil
}

func minFloat(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxFloat(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
