// Package pairing turns raw fills into round-trip trades via LIFO stack
// pairing, one stack per (account, market, code, instrument) (§4.5).
package pairing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"investment-analyzer/internal/config"
	"investment-analyzer/internal/model"
)

type lot struct {
	side  model.TradeSide // TradeBuy = open long, TradeSell = open short
	qty   float64
	price decimal.Decimal
	fee   decimal.Decimal // total fee on this lot's original fill, pro-rated on split
	time  string
}

type queueKey struct {
	Account    string
	Market     model.Market
	Code       string
	Instrument model.Instrument
}

// Pair runs LIFO pairing over an ordered (by TradeTime) set of fills and
// returns the round-trip trades and any unpaired residuals. Fills for
// distinct (account, market, code, instrument) queues are paired independently.
func Pair(fills []model.Fill, multipliers *config.MultiplierTable) ([]model.RoundTripTrade, []model.Residual) {
	sorted := make([]model.Fill, len(fills))
	copy(sorted, fills)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TradeTime < sorted[j].TradeTime })

	stacks := make(map[queueKey][]lot)
	var trades []model.RoundTripTrade
	var residuals []model.Residual

	for _, f := range sorted {
		instrument := model.InstrumentStock
		if config.IsOptionCode(f.Code) {
			instrument = model.InstrumentOption
		}
		mult := multipliers.Multiplier(string(f.Market), f.Code)
		key := queueKey{Account: f.Account, Market: f.Market, Code: f.Code, Instrument: instrument}

		fee := decimal.Zero
		if f.Fee != nil {
			fee = decimal.NewFromFloat(*f.Fee)
		}
		price := decimal.NewFromFloat(f.Price)

		// opposingSide is the side already resting on the stack that this
		// fill can close against: a BUY closes open SHORT lots, a SELL
		// closes open LONG lots. Pairing is symmetric in both directions.
		var opposingSide model.TradeSide
		switch f.Side {
		case model.TradeBuy:
			opposingSide = model.TradeSell
		case model.TradeSell:
			opposingSide = model.TradeBuy
		}

		remaining := f.Qty
		stack := stacks[key]
		for remaining > 0 && len(stack) > 0 && stack[len(stack)-1].side == opposingSide {
			top := &stack[len(stack)-1]
			matched := top.qty
			if matched > remaining {
				matched = remaining
			}

			entryFeeShare := decimal.Zero
			if top.qty > 0 {
				entryFeeShare = top.fee.Mul(decimal.NewFromFloat(matched / top.qty))
			}
			exitFeeShare := decimal.Zero
			if f.Qty > 0 {
				exitFeeShare = fee.Mul(decimal.NewFromFloat(matched / f.Qty))
			}

			var trade model.RoundTripTrade
			if f.Side == model.TradeBuy {
				// Closing a short: top is the SELL that opened it, f is the covering BUY.
				trade = buildRoundTrip(key, top.time, f.TradeTime, matched, top.price, price, entryFeeShare, exitFeeShare, mult, true)
			} else {
				// Closing a long: top is the BUY that opened it, f is the closing SELL.
				trade = buildRoundTrip(key, top.time, f.TradeTime, matched, top.price, price, entryFeeShare, exitFeeShare, mult, false)
			}
			trades = append(trades, trade)

			top.qty -= matched
			top.fee = top.fee.Sub(entryFeeShare)
			remaining -= matched
			if top.qty <= 0 {
				stack = stack[:len(stack)-1]
			}
		}
		stacks[key] = stack
		if remaining > 0 {
			stacks[key] = append(stacks[key], lot{side: f.Side, qty: remaining, price: price, fee: fee.Mul(decimal.NewFromFloat(remaining / f.Qty)), time: f.TradeTime})
		}
	}

	// Any lots left on the stacks at the end are unpaired (open) positions:
	// an open BUY lot is a residual long, an open SELL lot a residual short.
	for key, stack := range stacks {
		for _, l := range stack {
			if l.qty <= 0 {
				continue
			}
			residuals = append(residuals, model.Residual{
				Account: key.Account, Market: key.Market, Code: key.Code, Instrument: key.Instrument,
				Side: l.side, Qty: l.qty, Price: l.price, Time: l.time,
			})
		}
	}

	return trades, residuals
}

// buildRoundTrip assembles a RoundTripTrade from an opening lot and a
// closing fill. short is true when the opening lot was a SELL (short
// position, closed by a later BUY); the gross P&L sign flips accordingly.
func buildRoundTrip(key queueKey, entryTime, exitTime string, qty float64, entryPrice, exitPrice decimal.Decimal, entryFee, exitFee decimal.Decimal, multiplier int, short bool) model.RoundTripTrade {
	m := decimal.NewFromInt(int64(multiplier))
	q := decimal.NewFromFloat(qty)

	var grossPnL decimal.Decimal
	if short {
		grossPnL = entryPrice.Sub(exitPrice).Mul(q).Mul(m)
	} else {
		grossPnL = exitPrice.Sub(entryPrice).Mul(q).Mul(m)
	}
	fees := entryFee.Add(exitFee)
	netPnL := grossPnL.Sub(fees)

	denom := entryPrice.Mul(q).Mul(m)
	pnlRatio := decimal.Zero
	if !denom.IsZero() {
		pnlRatio = netPnL.Div(denom)
	}

	holdDays := 0
	et, eerr := time.Parse(time.RFC3339, entryTime)
	xt, xerr := time.Parse(time.RFC3339, exitTime)
	if eerr == nil && xerr == nil {
		holdDays = int(xt.Sub(et).Hours() / 24)
	}

	return model.RoundTripTrade{
		Account:    key.Account,
		Market:     key.Market,
		Code:       key.Code,
		Instrument: key.Instrument,
		EntryTime:  entryTime,
		ExitTime:   exitTime,
		Qty:        qty,
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		GrossPnL:   grossPnL,
		Fees:       fees,
		NetPnL:     netPnL,
		PnLRatio:   pnlRatio,
		HoldDays:   holdDays,
	}
}
