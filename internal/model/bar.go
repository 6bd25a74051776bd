package model

import (
	"fmt"

	"investment-analyzer/internal/apperr"
)

// Bar is a single daily OHLCV observation, keyed uniquely by
// (Market, Code, Date).
type Bar struct {
	Market Market
	Code   string
	Date   string // YYYY-MM-DD, calendar day, ascending order within a series

	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	Amount        *float64
	TurnoverRate  *float64
	ChangePct     *float64

	// Precomputed, optional convenience fields some providers ship inline.
	Precomputed *BarPrecomputed
}

// BarPrecomputed carries provider-supplied moving averages/OBV, when present.
// The indicator engine never relies on these; it always recomputes from the
// raw OHLCV series.
type BarPrecomputed struct {
	MA5  *float64
	MA10 *float64
	MA20 *float64
	MA60 *float64
	OBV  *float64
}

// Validate checks the bar-level invariants from §3: low <= min(open,close),
// high >= max(open,close), low <= high, volume >= 0.
func (b Bar) Validate() error {
	if b.Low > min2(b.Open, b.Close) {
		return apperr.New(apperr.InternalAssert, fmt.Sprintf("bar %s %s %s: low %v > min(open,close)", b.Market, b.Code, b.Date, b.Low))
	}
	if b.High < max2(b.Open, b.Close) {
		return apperr.New(apperr.InternalAssert, fmt.Sprintf("bar %s %s %s: high %v < max(open,close)", b.Market, b.Code, b.Date, b.High))
	}
	if b.Low > b.High {
		return apperr.New(apperr.InternalAssert, fmt.Sprintf("bar %s %s %s: low %v > high %v", b.Market, b.Code, b.Date, b.Low, b.High))
	}
	if b.Volume < 0 {
		return apperr.New(apperr.InternalAssert, fmt.Sprintf("bar %s %s %s: negative volume %d", b.Market, b.Code, b.Date, b.Volume))
	}
	return nil
}

// NormalizeMarket applies the SH.*/SZ.* -> A ingest-time remap to the bar's
// own Market/Code pair.
func (b *Bar) NormalizeMarket() {
	b.Market, b.Code = NormalizeMarketCode(b.Market, b.Code)
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ValidateSeries checks that bars are strictly ascending by Date and each
// bar individually satisfies Bar.Validate. Unsorted input is InvalidInput,
// not InternalAssert, per §4.1's failure semantics.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && bars[i-1].Date >= b.Date {
			return apperr.New(apperr.InvalidInput, fmt.Sprintf("bar series not strictly ascending at index %d (%s <= %s)", i, b.Date, bars[i-1].Date))
		}
	}
	return nil
}
