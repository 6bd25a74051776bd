// Package backtest replays a bar series through a strategy's intents and
// reports performance statistics (§4.6).
package backtest

import (
	"math"

	"investment-analyzer/internal/apperr"
	"investment-analyzer/internal/model"
)

// IntentAction is the action a strategy requests for the current bar.
type IntentAction string

const (
	IntentBuy  IntentAction = "BUY"
	IntentSell IntentAction = "SELL"
)

// Intent is one trading instruction emitted by Strategy.OnBar.
type Intent struct {
	Action IntentAction
	Code   string
	Qty    float64
}

// Strategy is the user-supplied trading logic driving the backtest.
type Strategy interface {
	// OnBar is invoked once per bar, in order, with the bar index into the
	// series and the full history up to and including it.
	OnBar(idx int, bars []model.Bar) []Intent
	// OnEnd is invoked once after the last bar.
	OnEnd(bars []model.Bar)
}

// FeeModel computes the trading fee for a fill.
type FeeModel interface {
	Fee(qty, price float64) float64
}

// PercentFeeModel charges a fixed percentage of notional, with an optional
// minimum fee floor.
type PercentFeeModel struct {
	Pct    float64
	MinFee float64
}

func (f PercentFeeModel) Fee(qty, price float64) float64 {
	fee := qty * price * f.Pct
	if fee < f.MinFee {
		return f.MinFee
	}
	return fee
}

// FixedFeeModel charges a flat fee per fill regardless of size.
type FixedFeeModel struct {
	Flat float64
}

func (f FixedFeeModel) Fee(qty, price float64) float64 {
	return f.Flat
}

// TradeLogEntry records one executed or rejected intent.
type TradeLogEntry struct {
	Date     string
	Action   IntentAction
	Code     string
	Qty      float64
	Price    float64
	Fee      float64
	Rejected bool
	Reason   string
}

// EquityPoint is one (date, equity) sample of the equity curve.
type EquityPoint struct {
	Date   string
	Equity float64
}

// PositionState tracks an open position's quantity and average cost.
type PositionState struct {
	Qty     float64
	AvgCost float64
}

// Result is the full backtest outcome.
type Result struct {
	EquityCurve    []EquityPoint
	TradeLog       []TradeLogEntry
	FinalCash      float64
	FinalPositions map[string]PositionState

	TotalReturn float64
	CAGR        float64
	Sharpe      float64
	Sortino     float64
	Calmar      float64
	MaxDrawdown float64
}

// Run replays bars through strategy with the given initial cash and fee
// model, executing intents at the same bar's close (slippage-free baseline).
func Run(bars []model.Bar, initialCash float64, strategy Strategy, fees FeeModel) (Result, error) {
	if err := model.ValidateSeries(bars); err != nil {
		return Result{}, err
	}
	if initialCash <= 0 {
		return Result{}, apperr.New(apperr.InvalidInput, "initial cash must be positive")
	}

	cash := initialCash
	positions := make(map[string]PositionState)
	var equityCurve []EquityPoint
	var tradeLog []TradeLogEntry

	for i, bar := range bars {
		// 1. Mark positions at close; append equity.
		equity := cash
		for code, pos := range positions {
			if code == bar.Code {
				equity += pos.Qty * bar.Close
			} else {
				equity += pos.Qty * pos.AvgCost
			}
		}
		equityCurve = append(equityCurve, EquityPoint{Date: bar.Date, Equity: equity})

		// 2. Invoke strategy.
		intents := strategy.OnBar(i, bars[:i+1])

		// 3. Execute intents at close.
		for _, intent := range intents {
			fee := fees.Fee(intent.Qty, bar.Close)
			switch intent.Action {
			case IntentBuy:
				cost := intent.Qty*bar.Close + fee
				if cash-cost < 0 {
					tradeLog = append(tradeLog, TradeLogEntry{Date: bar.Date, Action: intent.Action, Code: intent.Code, Qty: intent.Qty, Price: bar.Close, Rejected: true, Reason: "insufficient cash"})
					continue
				}
				cash -= cost
				pos := positions[intent.Code]
				newQty := pos.Qty + intent.Qty
				if newQty > 0 {
					pos.AvgCost = (pos.AvgCost*pos.Qty + bar.Close*intent.Qty) / newQty
				}
				pos.Qty = newQty
				positions[intent.Code] = pos
				tradeLog = append(tradeLog, TradeLogEntry{Date: bar.Date, Action: intent.Action, Code: intent.Code, Qty: intent.Qty, Price: bar.Close, Fee: fee})
			case IntentSell:
				pos := positions[intent.Code]
				if pos.Qty < intent.Qty {
					tradeLog = append(tradeLog, TradeLogEntry{Date: bar.Date, Action: intent.Action, Code: intent.Code, Qty: intent.Qty, Price: bar.Close, Rejected: true, Reason: "insufficient position"})
					continue
				}
				proceeds := intent.Qty*bar.Close - fee
				cash += proceeds
				pos.Qty -= intent.Qty
				if pos.Qty == 0 {
					delete(positions, intent.Code)
				} else {
					positions[intent.Code] = pos
				}
				tradeLog = append(tradeLog, TradeLogEntry{Date: bar.Date, Action: intent.Action, Code: intent.Code, Qty: intent.Qty, Price: bar.Close, Fee: fee})
			}
		}
	}

	strategy.OnEnd(bars)

	lastClose := bars[len(bars)-1].Close
	finalEquity := cash
	for code, pos := range positions {
		if code == bars[len(bars)-1].Code {
			finalEquity += pos.Qty * lastClose
		} else {
			finalEquity += pos.Qty * pos.AvgCost
		}
	}

	stats := computeStats(equityCurve, initialCash)

	return Result{
		EquityCurve:    equityCurve,
		TradeLog:       tradeLog,
		FinalCash:      cash,
		FinalPositions: positions,
		TotalReturn:    stats.totalReturn,
		CAGR:           stats.cagr,
		Sharpe:         stats.sharpe,
		Sortino:        stats.sortino,
		Calmar:         stats.calmar,
		MaxDrawdown:    stats.maxDrawdown,
	}, nil
}

type statsResult struct {
	totalReturn, cagr, sharpe, sortino, calmar, maxDrawdown float64
}

func computeStats(curve []EquityPoint, initialCash float64) statsResult {
	if len(curve) < 2 {
		return statsResult{}
	}
	first := curve[0].Equity
	last := curve[len(curve)-1].Equity
	totalReturn := 0.0
	if first != 0 {
		totalReturn = (last - first) / first
	}

	days := len(curve)
	years := float64(days) / 252.0
	cagr := 0.0
	if years > 0 && first > 0 && last > 0 {
		cagr = math.Pow(last/first, 1/years) - 1
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, math.Log(curve[i].Equity/prev))
	}

	sharpe := sharpeRatio(returns)
	sortino := sortinoRatio(returns)
	maxDD := maxDrawdown(curve)
	calmar := 0.0
	if maxDD != 0 {
		calmar = cagr / math.Abs(maxDD)
	}

	return statsResult{totalReturn: totalReturn, cagr: cagr, sharpe: sharpe, sortino: sortino, calmar: calmar, maxDrawdown: maxDD}
}

func sharpeRatio(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mu := meanOf(returns)
	sigma := math.Sqrt(varianceOf(returns, mu))
	if sigma == 0 {
		return 0
	}
	return mu / sigma * math.Sqrt(252)
}

func sortinoRatio(returns []float64) float64 {
	n := len(returns)
	if n < 2 {
		return 0
	}
	mu := meanOf(returns)
	var downsideSumSq float64
	downsideCount := 0
	for _, r := range returns {
		if r < 0 {
			downsideSumSq += r * r
			downsideCount++
		}
	}
	if downsideCount == 0 {
		return 0
	}
	downsideDev := math.Sqrt(downsideSumSq / float64(downsideCount))
	if downsideDev == 0 {
		return 0
	}
	return mu / downsideDev * math.Sqrt(252)
}

func maxDrawdown(curve []EquityPoint) float64 {
	peak := curve[0].Equity
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (p.Equity - peak) / peak
			if dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

func meanOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum / float64(len(x))
}

func varianceOf(x []float64, mu float64) float64 {
	if len(x) < 2 {
		return 0
	}
	var sum float64
	for _, v := range x {
		d := v - mu
		sum += d * d
	}
	return sum / float64(len(x)-1)
}
