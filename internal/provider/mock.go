package provider

import (
	"context"

	"investment-analyzer/internal/apperr"
	"investment-analyzer/internal/model"
)

// Mock is an in-memory QuoteProvider and BrokerProvider test double. Each
// field is a canned response or error keyed by the lookup arguments. An
// unconfigured key returns an empty result, except in FetchBars and
// FetchAccountInfo, which return an apperr.NotFound error.
type Mock struct {
	Bars         map[string][]model.Bar // key: market.code
	BarsErr      map[string]error

	Accounts     map[string][]string // key: user
	Positions    map[string][]model.Position
	AccountInfo  map[string]model.AccountSnapshot
	TodayDeals   map[string][]model.Fill
	HistDeals    map[string][]model.Fill
	Watchlist    map[string][]model.WatchlistEntry

	// CallCounts records how many times each operation was invoked, keyed
	// by "<Operation>:<lookup key>", e.g. "FetchBars:US.AAPL".
	CallCounts map[string]int
}

func NewMock() *Mock {
	return &Mock{
		Bars:        make(map[string][]model.Bar),
		BarsErr:     make(map[string]error),
		Accounts:    make(map[string][]string),
		Positions:   make(map[string][]model.Position),
		AccountInfo: make(map[string]model.AccountSnapshot),
		TodayDeals:  make(map[string][]model.Fill),
		HistDeals:   make(map[string][]model.Fill),
		Watchlist:   make(map[string][]model.WatchlistEntry),
		CallCounts:  make(map[string]int),
	}
}

func (m *Mock) count(key string) {
	m.CallCounts[key]++
}

func (m *Mock) FetchBars(ctx context.Context, market model.Market, code, fromDate, toDate string) ([]model.Bar, error) {
	key := string(market) + "." + code
	m.count("FetchBars:" + key)
	if err, ok := m.BarsErr[key]; ok {
		return nil, err
	}
	bars, ok := m.Bars[key]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "no bars for "+key)
	}
	var out []model.Bar
	for _, b := range bars {
		if b.Date >= fromDate && b.Date <= toDate {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Mock) ListAccounts(ctx context.Context, user string) ([]string, error) {
	m.count("ListAccounts:" + user)
	return m.Accounts[user], nil
}

func (m *Mock) FetchPositions(ctx context.Context, account string) ([]model.Position, error) {
	m.count("FetchPositions:" + account)
	return m.Positions[account], nil
}

func (m *Mock) FetchAccountInfo(ctx context.Context, account string) (model.AccountSnapshot, error) {
	m.count("FetchAccountInfo:" + account)
	snap, ok := m.AccountInfo[account]
	if !ok {
		return model.AccountSnapshot{}, apperr.New(apperr.NotFound, "no account info for "+account)
	}
	return snap, nil
}

func (m *Mock) FetchTodayDeals(ctx context.Context, account string) ([]model.Fill, error) {
	m.count("FetchTodayDeals:" + account)
	return m.TodayDeals[account], nil
}

func (m *Mock) FetchHistoricalDeals(ctx context.Context, account, from, to string) ([]model.Fill, error) {
	m.count("FetchHistoricalDeals:" + account)
	var out []model.Fill
	for _, f := range m.HistDeals[account] {
		if f.TradeTime >= from && f.TradeTime <= to {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *Mock) FetchWatchlist(ctx context.Context, user string) ([]model.WatchlistEntry, error) {
	m.count("FetchWatchlist:" + user)
	return m.Watchlist[user], nil
}
