package sync

import (
	"context"
	"time"

	"investment-analyzer/internal/apperr"
	"investment-analyzer/internal/model"
)

// withRetry runs fn up to Cfg.MaxRetries+1 times, retrying only on errors
// whose apperr.Kind is Retryable() (Transient, IntegrityConflict) with
// exponential backoff from Cfg.RetryBaseWait.
func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= o.Cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := o.Cfg.RetryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		kind, ok := apperr.KindOf(lastErr)
		if !ok || !kind.Retryable() {
			return lastErr
		}
	}
	return lastErr
}

func (o *Orchestrator) fetchPositionsWithRetry(ctx context.Context, account string) ([]model.Position, error) {
	var out []model.Position
	err := o.withRetry(ctx, func() error {
		var err error
		out, err = o.Broker.FetchPositions(ctx, account)
		return err
	})
	return out, err
}

func (o *Orchestrator) fetchTodayDealsWithRetry(ctx context.Context, account string) ([]model.Fill, error) {
	var out []model.Fill
	err := o.withRetry(ctx, func() error {
		var err error
		out, err = o.Broker.FetchTodayDeals(ctx, account)
		return err
	})
	return out, err
}

func (o *Orchestrator) fetchHistoricalDealsWithRetry(ctx context.Context, account, from, to string) ([]model.Fill, error) {
	var out []model.Fill
	err := o.withRetry(ctx, func() error {
		var err error
		out, err = o.Broker.FetchHistoricalDeals(ctx, account, from, to)
		return err
	})
	return out, err
}

func (o *Orchestrator) fetchWatchlistWithRetry(ctx context.Context, user string) ([]model.WatchlistEntry, error) {
	var out []model.WatchlistEntry
	err := o.withRetry(ctx, func() error {
		var err error
		out, err = o.Broker.FetchWatchlist(ctx, user)
		return err
	})
	return out, err
}

func (o *Orchestrator) fetchBarsWithRetry(ctx context.Context, market model.Market, code, from, to string) ([]model.Bar, error) {
	var out []model.Bar
	err := o.withRetry(ctx, func() error {
		var err error
		out, err = o.Quotes.FetchBars(ctx, market, code, from, to)
		return err
	})
	return out, err
}
