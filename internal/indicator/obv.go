package indicator

import "investment-analyzer/internal/model"

// OBV computes the cumulative On-Balance Volume: add volume on up-closes,
// subtract on down-closes, unchanged on flat closes. OBV[0] = 0 (no prior
// close to compare against), so the series is fully defined from index 0 —
// there is no indicator warm-up for OBV itself.
func OBV(bars []model.Bar) (model.Series, error) {
	if err := model.ValidateSeries(bars); err != nil {
		return nil, err
	}
	n := len(bars)
	out := model.NewAbsentSeries(n)
	if n == 0 {
		return out, nil
	}
	var running float64
	out[0] = model.Defined(0)
	for i := 1; i < n; i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			running += float64(bars[i].Volume)
		case bars[i].Close < bars[i-1].Close:
			running -= float64(bars[i].Volume)
		}
		out[i] = model.Defined(running)
	}
	return out, nil
}
