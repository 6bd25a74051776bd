// Package model holds the shared data types of the analytics core: bars,
// symbols, positions, trade fills, account snapshots, watchlist entries,
// sync logs, and the derived round-trip trade. Nothing in this package
// touches storage or providers; it is pure value types and parsing.
package model

import (
	"fmt"
	"strings"

	"investment-analyzer/internal/apperr"
)

// Market is one of the three markets the core understands.
type Market string

const (
	MarketHK Market = "HK"
	MarketUS Market = "US"
	MarketA  Market = "A"
)

func (m Market) Valid() bool {
	switch m {
	case MarketHK, MarketUS, MarketA:
		return true
	}
	return false
}

// Symbol is the canonical MARKET.CODE identifier (e.g. HK.00700).
type Symbol struct {
	Market Market
	Code   string
}

func (s Symbol) String() string {
	return string(s.Market) + "." + s.Code
}

// ParseSymbol accepts the canonical "MARKET.CODE" form, and codes prefixed
// with SH./SZ. which are normalized to market=A. A code with no market
// qualifier is rejected with InvalidInput; no market is inferred for it.
func ParseSymbol(raw string) (Symbol, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Symbol{}, apperr.New(apperr.InvalidInput, "empty symbol")
	}

	upper := strings.ToUpper(raw)
	if strings.HasPrefix(upper, "SH.") || strings.HasPrefix(upper, "SZ.") {
		code := upper[3:]
		if code == "" {
			return Symbol{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("malformed symbol %q", raw))
		}
		return Symbol{Market: MarketA, Code: code}, nil
	}

	if idx := strings.IndexByte(upper, '.'); idx > 0 && idx < len(upper)-1 {
		market := Market(upper[:idx])
		code := upper[idx+1:]
		if !market.Valid() {
			return Symbol{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("unknown market in symbol %q", raw))
		}
		return Symbol{Market: market, Code: code}, nil
	}

	return Symbol{}, apperr.New(apperr.InvalidInput, fmt.Sprintf("symbol %q missing market qualifier", raw))
}

// NormalizeMarketCode applies the SH.*/SZ.* -> A remapping used at ingest
// time, independent of full symbol parsing. It returns the persisted
// (market, code) pair.
func NormalizeMarketCode(market Market, code string) (Market, string) {
	upper := strings.ToUpper(code)
	if strings.HasPrefix(upper, "SH.") || strings.HasPrefix(upper, "SZ.") {
		return MarketA, upper[3:]
	}
	return market, code
}
