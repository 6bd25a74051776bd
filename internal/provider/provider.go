// Package provider defines the narrow interfaces the sync orchestrator pulls
// from: a quote source for daily bars and a broker source for positions,
// deals, and watchlist (§6). No concrete HTTP or brokerage client lives
// here — only the contracts and a test double.
package provider

import (
	"context"

	"investment-analyzer/internal/model"
)

// QuoteProvider fetches daily bars for a symbol over a day range.
type QuoteProvider interface {
	// FetchBars returns ascending-by-date, full-calendar-day bars in
	// [fromDate, toDate]. Errors use apperr kinds NotFound/Transient/
	// ProviderInvalid/InvalidInput.
	FetchBars(ctx context.Context, market model.Market, code, fromDate, toDate string) ([]model.Bar, error)
}

// BrokerProvider fetches account-scoped state: accounts, positions, cash,
// deals, and watchlist. Authentication is handled by the caller; the
// interface takes an already-connected session handle.
type BrokerProvider interface {
	ListAccounts(ctx context.Context, user string) ([]string, error)
	FetchPositions(ctx context.Context, account string) ([]model.Position, error)
	FetchAccountInfo(ctx context.Context, account string) (model.AccountSnapshot, error)
	FetchTodayDeals(ctx context.Context, account string) ([]model.Fill, error)
	FetchHistoricalDeals(ctx context.Context, account, from, to string) ([]model.Fill, error)
	FetchWatchlist(ctx context.Context, user string) ([]model.WatchlistEntry, error)
}
