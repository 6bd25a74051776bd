package backtest

import (
	"investment-analyzer/internal/indicator"
	"investment-analyzer/internal/model"
	"investment-analyzer/internal/vcp"
)

// MACrossStrategy buys when the short SMA crosses above the long SMA and
// sells on the reverse cross, with fixed position sizing.
type MACrossStrategy struct {
	ShortPeriod int
	LongPeriod  int
	Qty         float64

	inPosition bool
}

func NewMACrossStrategy(shortPeriod, longPeriod int, qty float64) *MACrossStrategy {
	return &MACrossStrategy{ShortPeriod: shortPeriod, LongPeriod: longPeriod, Qty: qty}
}

func (s *MACrossStrategy) OnBar(idx int, bars []model.Bar) []Intent {
	if idx < s.LongPeriod {
		return nil
	}
	shortSMA, err := indicator.SMA(bars, s.ShortPeriod)
	if err != nil {
		return nil
	}
	longSMA, err := indicator.SMA(bars, s.LongPeriod)
	if err != nil {
		return nil
	}
	if idx == 0 {
		return nil
	}
	cur, curOK := shortSMA.At(idx)
	prev, prevOK := shortSMA.At(idx - 1)
	curLong, curLongOK := longSMA.At(idx)
	prevLong, prevLongOK := longSMA.At(idx - 1)
	if !curOK || !prevOK || !curLongOK || !prevLongOK {
		return nil
	}

	goldenCross := prev <= prevLong && cur > curLong
	deathCross := prev >= prevLong && cur < curLong

	code := bars[idx].Code
	if goldenCross && !s.inPosition {
		s.inPosition = true
		return []Intent{{Action: IntentBuy, Code: code, Qty: s.Qty}}
	}
	if deathCross && s.inPosition {
		s.inPosition = false
		return []Intent{{Action: IntentSell, Code: code, Qty: s.Qty}}
	}
	return nil
}

func (s *MACrossStrategy) OnEnd(bars []model.Bar) {}

// VCPBreakoutStrategy buys when the VCP detector reports a mature pattern
// with score >= Threshold and the close has reached the pivot price, and
// exits via a trailing stop at a fixed percent below the running high.
type VCPBreakoutStrategy struct {
	Threshold     float64
	TrailingPct   float64
	Qty           float64
	DetectorCfg   vcp.Config

	inPosition bool
	highSinceEntry float64
}

func NewVCPBreakoutStrategy(threshold, trailingPct, qty float64) *VCPBreakoutStrategy {
	return &VCPBreakoutStrategy{Threshold: threshold, TrailingPct: trailingPct, Qty: qty, DetectorCfg: vcp.DefaultConfig()}
}

func (s *VCPBreakoutStrategy) OnBar(idx int, bars []model.Bar) []Intent {
	code := bars[idx].Code
	close := bars[idx].Close

	if s.inPosition {
		if close > s.highSinceEntry {
			s.highSinceEntry = close
		}
		stopPrice := s.highSinceEntry * (1 - s.TrailingPct)
		if close <= stopPrice {
			s.inPosition = false
			return []Intent{{Action: IntentSell, Code: code, Qty: s.Qty}}
		}
		return nil
	}

	res, err := vcp.Detect(bars[:idx+1], s.DetectorCfg)
	if err != nil || !res.IsVCP {
		return nil
	}
	if res.Stage == vcp.StageMature && res.Score >= s.Threshold && close >= res.PivotPrice {
		s.inPosition = true
		s.highSinceEntry = close
		return []Intent{{Action: IntentBuy, Code: code, Qty: s.Qty}}
	}
	return nil
}

func (s *VCPBreakoutStrategy) OnEnd(bars []model.Bar) {}
