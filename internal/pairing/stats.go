package pairing

import (
	"sort"

	"github.com/shopspring/decimal"

	"investment-analyzer/internal/model"
)

// MonthlyPnL is one calendar month's aggregate net P&L.
type MonthlyPnL struct {
	Month  string // YYYY-MM
	NetPnL decimal.Decimal
	Count  int
}

// HistogramBucket is one bucket of the pnl-ratio distribution.
type HistogramBucket struct {
	LowerBound float64 // inclusive
	UpperBound float64 // exclusive
	Count      int
}

// MarketBreakdown is a per-market rollup of trade statistics.
type MarketBreakdown struct {
	Market  model.Market
	Count   int
	NetPnL  decimal.Decimal
	WinRate float64
}

// Statistics is the full aggregate analysis over a set of round-trip trades.
type Statistics struct {
	Count              int
	WinRate            float64
	TotalGain          decimal.Decimal
	AvgGain            decimal.Decimal
	TotalLoss          decimal.Decimal
	AvgLoss            decimal.Decimal
	ProfitFactor        float64 // |winSum| / |lossSum|
	Expectancy          decimal.Decimal
	AvgHoldDaysWins     float64
	AvgHoldDaysLosses   float64
	FeesByInstrument    map[model.Instrument]decimal.Decimal
	TopBest             []model.RoundTripTrade
	TopWorst            []model.RoundTripTrade
	MonthlyPnL          []MonthlyPnL
	PnLRatioHistogram   []HistogramBucket
	MarketBreakdown     []MarketBreakdown
}

// ComputeStatistics aggregates statistics over a set of round-trip trades.
// topN bounds TopBest/TopWorst (0 means "all").
func ComputeStatistics(trades []model.RoundTripTrade, topN int) Statistics {
	s := Statistics{
		Count:            len(trades),
		FeesByInstrument: make(map[model.Instrument]decimal.Decimal),
	}
	if len(trades) == 0 {
		return s
	}

	wins := 0
	var winSum, lossSum decimal.Decimal
	var holdDaysWinsSum, holdDaysLossesSum int
	winCount, lossCount := 0, 0

	for _, t := range trades {
		s.FeesByInstrument[t.Instrument] = s.FeesByInstrument[t.Instrument].Add(t.Fees)
		if t.NetPnL.IsPositive() {
			wins++
			winSum = winSum.Add(t.NetPnL)
			holdDaysWinsSum += t.HoldDays
			winCount++
		} else if t.NetPnL.IsNegative() {
			lossSum = lossSum.Add(t.NetPnL)
			holdDaysLossesSum += t.HoldDays
			lossCount++
		}
	}

	s.WinRate = float64(wins) / float64(len(trades))
	s.TotalGain = winSum
	s.TotalLoss = lossSum
	if winCount > 0 {
		s.AvgGain = winSum.Div(decimal.NewFromInt(int64(winCount)))
		s.AvgHoldDaysWins = float64(holdDaysWinsSum) / float64(winCount)
	}
	if lossCount > 0 {
		s.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(lossCount)))
		s.AvgHoldDaysLosses = float64(holdDaysLossesSum) / float64(lossCount)
	}
	if !lossSum.IsZero() {
		s.ProfitFactor, _ = winSum.Abs().Div(lossSum.Abs()).Float64()
	}

	lossRate := 1 - s.WinRate
	s.Expectancy = s.AvgGain.Mul(decimal.NewFromFloat(s.WinRate)).
		Sub(s.AvgLoss.Abs().Mul(decimal.NewFromFloat(lossRate)))

	sorted := make([]model.RoundTripTrade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NetPnL.GreaterThan(sorted[j].NetPnL) })
	n := topN
	if n <= 0 || n > len(sorted) {
		n = len(sorted)
	}
	s.TopBest = sorted[:n]
	worst := make([]model.RoundTripTrade, len(sorted))
	for i, t := range sorted {
		worst[len(sorted)-1-i] = t
	}
	s.TopWorst = worst[:n]

	s.MonthlyPnL = monthlyPnL(trades)
	s.PnLRatioHistogram = pnlRatioHistogram(trades)
	s.MarketBreakdown = marketBreakdown(trades)

	return s
}

func monthlyPnL(trades []model.RoundTripTrade) []MonthlyPnL {
	byMonth := make(map[string]*MonthlyPnL)
	var order []string
	for _, t := range trades {
		month := monthOf(t.ExitTime)
		m, ok := byMonth[month]
		if !ok {
			m = &MonthlyPnL{Month: month}
			byMonth[month] = m
			order = append(order, month)
		}
		m.NetPnL = m.NetPnL.Add(t.NetPnL)
		m.Count++
	}
	sort.Strings(order)
	out := make([]MonthlyPnL, 0, len(order))
	for _, mo := range order {
		out = append(out, *byMonth[mo])
	}
	return out
}

func monthOf(rfc3339 string) string {
	if len(rfc3339) >= 7 {
		return rfc3339[:7]
	}
	return rfc3339
}

// pnlRatioHistogram buckets trades into 10 pnl-ratio ranges split at
// -100%, -50%, -20%, -10%, 0, +10%, +20%, +50% and +100%, with open-ended
// buckets below -100% and above +100%.
func pnlRatioHistogram(trades []model.RoundTripTrade) []HistogramBucket {
	bounds := []float64{-1.0, -0.5, -0.2, -0.1, 0, 0.1, 0.2, 0.5, 1.0}
	buckets := make([]HistogramBucket, len(bounds)+1)
	buckets[0] = HistogramBucket{LowerBound: -1e18, UpperBound: bounds[0]}
	for i := 0; i < len(bounds); i++ {
		upper := 1e18
		if i+1 < len(bounds) {
			upper = bounds[i+1]
		}
		buckets[i+1] = HistogramBucket{LowerBound: bounds[i], UpperBound: upper}
	}

	for _, t := range trades {
		ratio, _ := t.PnLRatio.Float64()
		for i := range buckets {
			if ratio >= buckets[i].LowerBound && ratio < buckets[i].UpperBound {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

func marketBreakdown(trades []model.RoundTripTrade) []MarketBreakdown {
	byMarket := make(map[model.Market]*MarketBreakdown)
	var order []model.Market
	wins := make(map[model.Market]int)
	for _, t := range trades {
		b, ok := byMarket[t.Market]
		if !ok {
			b = &MarketBreakdown{Market: t.Market}
			byMarket[t.Market] = b
			order = append(order, t.Market)
		}
		b.Count++
		b.NetPnL = b.NetPnL.Add(t.NetPnL)
		if t.NetPnL.IsPositive() {
			wins[t.Market]++
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]MarketBreakdown, 0, len(order))
	for _, mk := range order {
		b := byMarket[mk]
		if b.Count > 0 {
			b.WinRate = float64(wins[mk]) / float64(b.Count)
		}
		out = append(out, *b)
	}
	return out
}
