package store

import (
	"database/sql"
	"fmt"

	"investment-analyzer/internal/model"
)

// UpsertBars persists bars idempotently keyed by (market, code, trade_date);
// a re-ingest of an unchanged bar is a no-op write, a changed bar overwrites
// in place. Returns the count of rows actually written (new dates plus
// changed bars; unchanged bars are not counted), matching the sync
// orchestrator's records_count semantics.
func (s *Store) UpsertBars(bars []model.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	tx, err := s.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("upsert bars begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO klines (market, code, trade_date, open, high, low, close, volume, amount, turnover_rate, change_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market, code, trade_date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low, close = excluded.close,
			volume = excluded.volume, amount = excluded.amount, turnover_rate = excluded.turnover_rate,
			change_pct = excluded.change_pct
		WHERE klines.open != excluded.open OR klines.high != excluded.high OR klines.low != excluded.low
		   OR klines.close != excluded.close OR klines.volume != excluded.volume
	`)
	if err != nil {
		return 0, fmt.Errorf("upsert bars prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		res, err := stmt.Exec(string(b.Market), b.Code, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
			nullableFloat(b.Amount), nullableFloat(b.TurnoverRate), nullableFloat(b.ChangePct))
		if err != nil {
			return 0, fmt.Errorf("upsert bar %s.%s %s: %w", b.Market, b.Code, b.Date, err)
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert bars commit: %w", err)
	}
	return inserted, nil
}

// FetchBars returns ascending-by-date bars for (market, code) in [from, to].
func (s *Store) FetchBars(market model.Market, code, from, to string) ([]model.Bar, error) {
	rows, err := s.sql.Query(`
		SELECT market, code, trade_date, open, high, low, close, volume, amount, turnover_rate, change_pct
		  FROM klines
		 WHERE market = ? AND code = ? AND trade_date >= ? AND trade_date <= ?
		 ORDER BY trade_date ASC
	`, string(market), code, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer rows.Close()

	var out []model.Bar
	for rows.Next() {
		var b model.Bar
		var mkt string
		var amount, turnover, change sql.NullFloat64
		if err := rows.Scan(&mkt, &b.Code, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &amount, &turnover, &change); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Market = model.Market(mkt)
		if amount.Valid {
			v := amount.Float64
			b.Amount = &v
		}
		if turnover.Valid {
			v := turnover.Float64
			b.TurnoverRate = &v
		}
		if change.Valid {
			v := change.Float64
			b.ChangePct = &v
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatestBarDate returns the most recent trade_date on record for (market,
// code), or "" if none.
func (s *Store) LatestBarDate(market model.Market, code string) (string, error) {
	var date sql.NullString
	err := s.sql.QueryRow(`SELECT MAX(trade_date) FROM klines WHERE market = ? AND code = ?`, string(market), code).Scan(&date)
	if err != nil {
		return "", fmt.Errorf("latest bar date: %w", err)
	}
	return date.String, nil
}

func nullableFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
