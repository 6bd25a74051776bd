package indicator

import "investment-analyzer/internal/model"

// BollingerConfig configures Bollinger Bands. SqueezeThreshold (tau) is the
// (upper-lower)/middle ratio below which a squeeze is flagged.
type BollingerConfig struct {
	Period          int
	StdDevMult      float64
	SqueezeThreshold float64
}

func DefaultBollingerConfig() BollingerConfig {
	return BollingerConfig{Period: 20, StdDevMult: 2, SqueezeThreshold: 0.1}
}

// BollingerResult carries the three bands and a per-bar squeeze flag.
type BollingerResult struct {
	Middle  model.Series
	Upper   model.Series
	Lower   model.Series
	Squeeze []bool
}

// Bollinger computes middle = SMA(period), upper/lower = middle +/-
// stdDevMult*stdev(close, period), and a squeeze flag where
// (upper-lower)/middle < SqueezeThreshold.
func Bollinger(bars []model.Bar, cfg BollingerConfig) (BollingerResult, error) {
	middle, err := SMA(bars, cfg.Period)
	if err != nil {
		return BollingerResult{}, err
	}
	c := closes(bars)
	n := len(bars)
	upper := model.NewAbsentSeries(n)
	lower := model.NewAbsentSeries(n)
	squeeze := make([]bool, n)

	for i := cfg.Period - 1; i < n; i++ {
		window := c[i-cfg.Period+1 : i+1]
		sd := stdev(window)
		mid, _ := middle.At(i)
		up := mid + cfg.StdDevMult*sd
		lo := mid - cfg.StdDevMult*sd
		upper[i] = model.Defined(up)
		lower[i] = model.Defined(lo)
		if mid != 0 {
			squeeze[i] = (up-lo)/mid < cfg.SqueezeThreshold
		}
	}
	return BollingerResult{Middle: middle, Upper: upper, Lower: lower, Squeeze: squeeze}, nil
}
