// Package sync is the ingest orchestrator (C11): it pulls from
// internal/provider and writes through internal/store, producing an
// append-only sync_logs trail and PARTIAL-on-subcomponent-failure semantics.
package sync

import (
	"context"
	"fmt"
	"time"

	"investment-analyzer/internal/apperr"
	"investment-analyzer/internal/model"
	"investment-analyzer/internal/provider"
	"investment-analyzer/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Config tunes the orchestrator's concurrency and retry policy.
type Config struct {
	KlineWorkers  int           // bounded worker pool size for per-symbol bar fetches
	MaxRetries    int           // retries after the first attempt for retryable provider errors
	RetryBaseWait time.Duration // exponential backoff base
	BarLookback   time.Duration // requested-from-fallback window when no klines are on record yet
}

func DefaultConfig() Config {
	return Config{KlineWorkers: 4, MaxRetries: 3, RetryBaseWait: 500 * time.Millisecond, BarLookback: 365 * 24 * time.Hour}
}

// Orchestrator wires a Quote/Broker Provider pair to a Store.
type Orchestrator struct {
	Store     *store.Store
	Quotes    provider.QuoteProvider
	Broker    provider.BrokerProvider
	Cfg       Config
	now       func() time.Time
	newLogID  func() string
	barFlight singleflight.Group // coalesces concurrent identical-symbol bar fetches across overlapping syncs
}

func New(st *store.Store, quotes provider.QuoteProvider, broker provider.BrokerProvider, cfg Config) *Orchestrator {
	return &Orchestrator{
		Store:    st,
		Quotes:   quotes,
		Broker:   broker,
		Cfg:      cfg,
		now:      time.Now,
		newLogID: func() string { return uuid.NewString() },
	}
}

// startLog opens a SyncLog row's in-memory record; callers finish it via finishLog.
func (o *Orchestrator) startLog(user string, kind model.SyncType) *model.SyncLog {
	u := user
	return &model.SyncLog{
		ID:        o.newLogID(),
		User:      &u,
		SyncType:  kind,
		StartedAt: o.now().Format(time.RFC3339),
	}
}

// finishLog stamps finished_at/records_count/status and persists the row.
// status is SyncFailed whenever err != nil and the caller didn't already
// pick SyncPartial; a caller that wants PARTIAL semantics on a non-nil err
// should call finishLogWithStatus directly.
func (o *Orchestrator) finishLog(log *model.SyncLog, records int, err error) (model.SyncLog, error) {
	status := model.SyncSuccess
	if err != nil {
		status = model.SyncFailed
	}
	return o.finishLogWithStatus(log, records, status, err)
}

func (o *Orchestrator) finishLogWithStatus(log *model.SyncLog, records int, status model.SyncStatus, err error) (model.SyncLog, error) {
	finished := o.now().Format(time.RFC3339)
	log.FinishedAt = &finished
	log.RecordsCount = records
	log.Status = status
	if err != nil {
		msg := err.Error()
		log.Error = &msg
	}
	if writeErr := o.Store.InsertSyncLog(*log); writeErr != nil {
		return *log, fmt.Errorf("write sync log: %w", writeErr)
	}
	return *log, err
}

// SyncPositions fetches and upserts current positions for every account of user.
func (o *Orchestrator) SyncPositions(ctx context.Context, user string, accounts []string) (model.SyncLog, error) {
	log := o.startLog(user, model.SyncPositions)
	today := o.now().Format("2006-01-02")

	total := 0
	for _, acc := range accounts {
		positions, err := o.fetchPositionsWithRetry(ctx, acc)
		if err != nil {
			return o.finishLog(log, total, fmt.Errorf("account %s: %w", acc, err))
		}
		for i := range positions {
			positions[i].SnapshotDate = today
			positions[i].Account = acc
			positions[i].Derive()
		}
		n, err := o.Store.UpsertPositions(acc, positions)
		if err != nil {
			return o.finishLog(log, total, fmt.Errorf("account %s persist: %w", acc, err))
		}
		total += n
	}
	return o.finishLog(log, total, nil)
}

// SyncTrades fetches today's deals plus historical deals in [from, to] for
// every account and upserts them deduplicated by deal_id.
func (o *Orchestrator) SyncTrades(ctx context.Context, user string, accounts []string, from, to string) (model.SyncLog, error) {
	log := o.startLog(user, model.SyncTrades)

	total := 0
	for _, acc := range accounts {
		today, err := o.fetchTodayDealsWithRetry(ctx, acc)
		if err != nil {
			return o.finishLog(log, total, fmt.Errorf("account %s today deals: %w", acc, err))
		}
		hist, err := o.fetchHistoricalDealsWithRetry(ctx, acc, from, to)
		if err != nil {
			return o.finishLog(log, total, fmt.Errorf("account %s historical deals: %w", acc, err))
		}
		fills := append(today, hist...)
		for i := range fills {
			fills[i].Account = acc
			fills[i].Market, fills[i].Code = model.NormalizeMarketCode(fills[i].Market, fills[i].Code)
		}
		n, err := o.Store.UpsertTrades(acc, fills)
		if err != nil {
			return o.finishLog(log, total, fmt.Errorf("account %s persist: %w", acc, err))
		}
		total += n
	}
	return o.finishLog(log, total, nil)
}

// symbolJob is one (market, code) kline fetch assigned to the worker pool.
type symbolJob struct {
	Market model.Market
	Code   string
}

// SyncKlines fetches and upserts bars for each symbol from its latest
// persisted date (or now-BarLookback if none) through today, using a bounded
// worker pool (Cfg.KlineWorkers). A single symbol's provider failure does
// not abort the batch; its contribution to records_count is just 0 and the
// run still completes (the caller may inspect the returned error for the
// last-seen failure to decide on PARTIAL at the sync_all level).
func (o *Orchestrator) SyncKlines(ctx context.Context, user string, symbols []symbolJob) (model.SyncLog, error) {
	log := o.startLog(user, model.SyncKlines)

	workers := o.Cfg.KlineWorkers
	if workers < 1 {
		workers = 1
	}

	type result struct {
		inserted int
		err      error
	}
	results := make([]result, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			n, err := o.syncOneSymbol(gctx, sym)
			results[i] = result{inserted: n, err: err}
			return nil // per-symbol errors are recorded, not fatal to the pool
		})
	}
	_ = g.Wait()

	total := 0
	var firstErr error
	for _, r := range results {
		total += r.inserted
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
	}
	return o.finishLog(log, total, firstErr)
}

func (o *Orchestrator) syncOneSymbol(ctx context.Context, sym symbolJob) (int, error) {
	market, code := model.NormalizeMarketCode(sym.Market, sym.Code)
	today := o.now().Format("2006-01-02")

	latest, err := o.latestBarDate(market, code)
	if err != nil {
		return 0, err
	}
	from := latest
	if from == "" {
		from = o.now().Add(-o.Cfg.BarLookback).Format("2006-01-02")
	}
	if from > today {
		return 0, nil
	}

	sfKey := string(market) + "." + code + ":" + from + ".." + today
	v, err, _ := o.barFlight.Do(sfKey, func() (any, error) {
		return o.fetchBarsWithRetry(ctx, market, code, from, today)
	})
	var bars []model.Bar
	if v != nil {
		bars = v.([]model.Bar)
	}
	if err != nil {
		if kind, ok := apperr.KindOf(err); ok && kind == apperr.NotFound {
			return 0, nil
		}
		return 0, err
	}
	for i := range bars {
		bars[i].Market = market
		bars[i].Code = code
	}
	if err := model.ValidateSeries(bars); err != nil {
		return 0, apperr.Wrap(apperr.ProviderInvalid, string(market)+"."+code, from+".."+today, err)
	}
	return o.Store.UpsertBars(bars)
}

func (o *Orchestrator) latestBarDate(market model.Market, code string) (string, error) {
	last, err := o.Store.LatestBarDate(market, code)
	if err != nil {
		return "", err
	}
	if last == "" {
		return "", nil
	}
	t, err := time.Parse("2006-01-02", last)
	if err != nil {
		return "", nil
	}
	return t.AddDate(0, 0, 1).Format("2006-01-02"), nil
}

// SyncWatchlist pulls the watchlist from the Broker Provider and reconciles
// active/inactive flags without deleting historical rows.
func (o *Orchestrator) SyncWatchlist(ctx context.Context, user string) (model.SyncLog, error) {
	log := o.startLog(user, model.SyncWatchlist)

	entries, err := o.fetchWatchlistWithRetry(ctx, user)
	if err != nil {
		return o.finishLog(log, 0, err)
	}
	for i := range entries {
		entries[i].User = user
		if err := o.Store.UpsertWatchlist(user, entries[i]); err != nil {
			return o.finishLog(log, i, fmt.Errorf("watchlist entry %s.%s: %w", entries[i].Market, entries[i].Code, err))
		}
	}
	return o.finishLog(log, len(entries), nil)
}

// SyncAll runs positions, trades, watchlist, then klines for the union of
// symbols touched by positions and the watchlist, in that order. Any
// subcomponent failure still runs the rest and the overall log's status is
// PARTIAL with records_count summing the successes.
func (o *Orchestrator) SyncAll(ctx context.Context, user string, accounts []string, tradeFrom, tradeTo string) (model.SyncLog, error) {
	log := o.startLog(user, model.SyncAll)

	total := 0
	partial := false
	var lastErr error

	accum := func(sub model.SyncLog, err error) {
		total += sub.RecordsCount
		if err != nil {
			partial, lastErr = true, err
		}
	}

	accum(o.SyncPositions(ctx, user, accounts))
	accum(o.SyncTrades(ctx, user, accounts, tradeFrom, tradeTo))
	accum(o.SyncWatchlist(ctx, user))

	symbols := map[symbolJob]struct{}{}
	for _, acc := range accounts {
		positions, _ := o.Store.FetchLatestPositions(acc)
		for _, p := range positions {
			symbols[symbolJob{Market: p.Market, Code: p.Code}] = struct{}{}
		}
	}
	watch, _ := o.Store.FetchWatchlist(user)
	for _, w := range watch {
		symbols[symbolJob{Market: w.Market, Code: w.Code}] = struct{}{}
	}
	jobs := make([]symbolJob, 0, len(symbols))
	for s := range symbols {
		jobs = append(jobs, s)
	}

	klineLog, err := o.SyncKlines(ctx, user, jobs)
	total += klineLog.RecordsCount
	if err != nil {
		partial, lastErr = true, err
	}

	if partial {
		return o.finishLogWithStatus(log, total, model.SyncPartial, lastErr)
	}
	return o.finishLogWithStatus(log, total, model.SyncSuccess, nil)
}
