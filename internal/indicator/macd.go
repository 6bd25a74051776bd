package indicator

import "investment-analyzer/internal/model"

// MACDConfig configures the MACD computation. Defaults are the standard
// 12/26/9.
type MACDConfig struct {
	Fast   int
	Slow   int
	Signal int
}

func DefaultMACDConfig() MACDConfig {
	return MACDConfig{Fast: 12, Slow: 26, Signal: 9}
}

// MACDResult carries the MACD line, signal line, histogram, and a crossover
// marker series (+1 on a bullish cross, -1 on a bearish cross, 0 otherwise).
type MACDResult struct {
	Macd      model.Series
	Signal    model.Series
	Hist      model.Series
	Crossover []int
}

// MACD computes macd = EMA(fast) - EMA(slow), signal = EMA(macd, signal),
// hist = macd - signal, per §4.1.
func MACD(bars []model.Bar, cfg MACDConfig) (MACDResult, error) {
	fastEMA, err := EMA(bars, cfg.Fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowEMA, err := EMA(bars, cfg.Slow)
	if err != nil {
		return MACDResult{}, err
	}

	n := len(bars)
	macdSeries := model.NewAbsentSeries(n)
	macdValues := make([]float64, n)
	firstMacd := -1
	for i := 0; i < n; i++ {
		fv, fok := fastEMA.At(i)
		sv, sok := slowEMA.At(i)
		if fok && sok {
			v := fv - sv
			macdSeries[i] = model.Defined(v)
			macdValues[i] = v
			if firstMacd == -1 {
				firstMacd = i
			}
		}
	}

	signalSeries := model.NewAbsentSeries(n)
	histSeries := model.NewAbsentSeries(n)
	crossover := make([]int, n)
	if firstMacd >= 0 && n-firstMacd >= cfg.Signal {
		compact := macdValues[firstMacd:]
		sig := emaFromValues(compact, cfg.Signal)
		var prevMacd, prevSignal float64
		havePrev := false
		for i := cfg.Signal - 1; i < len(compact); i++ {
			idx := firstMacd + i
			signalSeries[idx] = model.Defined(sig[i])
			histSeries[idx] = model.Defined(compact[i] - sig[i])

			if havePrev {
				curDiff := compact[i] - sig[i]
				prevDiff := prevMacd - prevSignal
				if prevDiff <= 0 && curDiff > 0 {
					crossover[idx] = 1
				} else if prevDiff >= 0 && curDiff < 0 {
					crossover[idx] = -1
				}
			}
			prevMacd, prevSignal = compact[i], sig[i]
			havePrev = true
		}
	}

	return MACDResult{Macd: macdSeries, Signal: signalSeries, Hist: histSeries, Crossover: crossover}, nil
}
