package model

import "github.com/shopspring/decimal"

// RoundTripTrade is produced on demand by the pairing engine (C9); it is
// never persisted (§3 lifecycle).
type RoundTripTrade struct {
	Account    string
	Market     Market
	Code       string
	Instrument Instrument

	EntryTime string
	ExitTime  string
	Qty       float64

	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	GrossPnL   decimal.Decimal
	Fees       decimal.Decimal
	NetPnL     decimal.Decimal
	PnLRatio   decimal.Decimal

	HoldDays int
}

// Residual is the unpaired remainder left when a sell (or buy, for SHORT
// pairing) exceeds the open lots on the stack.
type Residual struct {
	Account    string
	Market     Market
	Code       string
	Instrument Instrument
	Side       TradeSide
	Qty        float64
	Price      decimal.Decimal
	Time       string
}
