package store

import (
	"database/sql"
	"fmt"

	"investment-analyzer/internal/model"
)

// EnsureUser inserts a user row if absent; a no-op on repeat calls.
func (s *Store) EnsureUser(userID, name, createdAt string) error {
	_, err := s.sql.Exec(`INSERT OR IGNORE INTO users (id, name, created_at) VALUES (?, ?, ?)`, userID, name, createdAt)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// EnsureAccount inserts an account row if absent, keyed by (user_id, broker_acc_id).
// Returns the account's internal id, userID + ":" + brokerAccID.
func (s *Store) EnsureAccount(userID, brokerAccID, label, createdAt string) (string, error) {
	accountID := userID + ":" + brokerAccID
	_, err := s.sql.Exec(
		`INSERT OR IGNORE INTO accounts (id, user_id, broker_acc_id, label, created_at) VALUES (?, ?, ?, ?, ?)`,
		accountID, userID, brokerAccID, label, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("ensure account: %w", err)
	}
	return accountID, nil
}

// UpsertPositions inserts the given snapshot-dated positions, ignoring rows
// that already exist for (account_id, snapshot_date, market, code) — a
// repeat sync of the same day is idempotent (invariant 8). Returns the
// count of rows actually inserted.
func (s *Store) UpsertPositions(accountID string, positions []model.Position) (int, error) {
	if len(positions) == 0 {
		return 0, nil
	}
	tx, err := s.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("upsert positions begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO positions
			(account_id, snapshot_date, market, code, qty, can_sell_qty, cost_price, market_price, market_value, pl_value, pl_ratio, side)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("upsert positions prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range positions {
		res, err := stmt.Exec(accountID, p.SnapshotDate, string(p.Market), p.Code, p.Qty, nullableFloat(p.CanSellQty),
			p.CostPrice, p.MarketPrice, p.MarketValue, p.PLValue, p.PLRatio, string(p.Side))
		if err != nil {
			return 0, fmt.Errorf("upsert position %s.%s %s: %w", p.Market, p.Code, p.SnapshotDate, err)
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert positions commit: %w", err)
	}
	return inserted, nil
}

// FetchLatestPositions returns the positions for the most recent
// snapshot_date on record for the account.
func (s *Store) FetchLatestPositions(accountID string) ([]model.Position, error) {
	var latest string
	err := s.sql.QueryRow(`SELECT MAX(snapshot_date) FROM positions WHERE account_id = ?`, accountID).Scan(&latest)
	if err != nil || latest == "" {
		return nil, nil
	}
	return s.FetchPositionsOnDate(accountID, latest)
}

// FetchPositionsOnDate returns the positions for one specific snapshot date.
func (s *Store) FetchPositionsOnDate(accountID, date string) ([]model.Position, error) {
	rows, err := s.sql.Query(`
		SELECT account_id, snapshot_date, market, code, qty, can_sell_qty, cost_price, market_price, market_value, pl_value, pl_ratio, side
		  FROM positions
		 WHERE account_id = ? AND snapshot_date = ?
	`, accountID, date)
	if err != nil {
		return nil, fmt.Errorf("fetch positions: %w", err)
	}
	defer rows.Close()

	var out []model.Position
	for rows.Next() {
		var p model.Position
		var mkt, side string
		var canSell sql.NullFloat64
		if err := rows.Scan(&p.Account, &p.SnapshotDate, &mkt, &p.Code, &p.Qty, &canSell, &p.CostPrice,
			&p.MarketPrice, &p.MarketValue, &p.PLValue, &p.PLRatio, &side); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		p.Market = model.Market(mkt)
		p.Side = model.Side(side)
		if canSell.Valid {
			v := canSell.Float64
			p.CanSellQty = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertTrades inserts fills, ignoring duplicates on (account_id, deal_id) —
// the idempotency key per spec. Returns the count actually inserted.
func (s *Store) UpsertTrades(accountID string, fills []model.Fill) (int, error) {
	if len(fills) == 0 {
		return 0, nil
	}
	tx, err := s.sql.Begin()
	if err != nil {
		return 0, fmt.Errorf("upsert trades begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO trades
			(account_id, deal_id, order_id, trade_time, market, code, side, qty, price, amount, fee, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("upsert trades prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, f := range fills {
		res, err := stmt.Exec(accountID, f.DealID, nullableString(f.OrderID), f.TradeTime, string(f.Market), f.Code,
			string(f.Side), f.Qty, f.Price, nullableFloat(f.Amount), nullableFloat(f.Fee), nullableString(f.Currency))
		if err != nil {
			return 0, fmt.Errorf("upsert trade %s: %w", f.DealID, err)
		}
		n, _ := res.RowsAffected()
		if n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert trades commit: %w", err)
	}
	return inserted, nil
}

// FetchTrades returns fills for an account in ascending trade_time order,
// optionally scoped to one symbol (empty code means all symbols).
func (s *Store) FetchTrades(accountID string, market model.Market, code string) ([]model.Fill, error) {
	query := `
		SELECT account_id, deal_id, order_id, trade_time, market, code, side, qty, price, amount, fee, currency
		  FROM trades
		 WHERE account_id = ?`
	args := []any{accountID}
	if code != "" {
		query += ` AND market = ? AND code = ?`
		args = append(args, string(market), code)
	}
	query += ` ORDER BY trade_time ASC`

	rows, err := s.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch trades: %w", err)
	}
	defer rows.Close()

	var out []model.Fill
	for rows.Next() {
		var f model.Fill
		var mkt, side string
		var orderID, currency sql.NullString
		var amount, fee sql.NullFloat64
		if err := rows.Scan(&f.Account, &f.DealID, &orderID, &f.TradeTime, &mkt, &f.Code, &side, &f.Qty, &f.Price, &amount, &fee, &currency); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		f.Market = model.Market(mkt)
		f.Side = model.TradeSide(side)
		if orderID.Valid {
			v := orderID.String
			f.OrderID = &v
		}
		if amount.Valid {
			v := amount.Float64
			f.Amount = &v
		}
		if fee.Valid {
			v := fee.Float64
			f.Fee = &v
		}
		if currency.Valid {
			v := currency.String
			f.Currency = &v
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpsertAccountSnapshot inserts one daily account snapshot, ignoring a
// duplicate for the same (account_id, snapshot_date). Returns true if a row
// was actually inserted.
func (s *Store) UpsertAccountSnapshot(accountID string, snap model.AccountSnapshot) (bool, error) {
	res, err := s.sql.Exec(`
		INSERT OR IGNORE INTO account_snapshots
			(account_id, snapshot_date, total_assets, cash, market_value, frozen_cash, buying_power, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, accountID, snap.SnapshotDate, snap.TotalAssets, snap.Cash, snap.MarketValue,
		nullableFloat(snap.FrozenCash), nullableFloat(snap.BuyingPower), nullableString(snap.Currency))
	if err != nil {
		return false, fmt.Errorf("upsert account snapshot: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// FetchAccountSnapshots returns an account's daily snapshots ascending by date.
func (s *Store) FetchAccountSnapshots(accountID string) ([]model.AccountSnapshot, error) {
	rows, err := s.sql.Query(`
		SELECT account_id, snapshot_date, total_assets, cash, market_value, frozen_cash, buying_power, currency
		  FROM account_snapshots
		 WHERE account_id = ?
		 ORDER BY snapshot_date ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch account snapshots: %w", err)
	}
	defer rows.Close()

	var out []model.AccountSnapshot
	for rows.Next() {
		var a model.AccountSnapshot
		var frozen, buying sql.NullFloat64
		var currency sql.NullString
		if err := rows.Scan(&a.Account, &a.SnapshotDate, &a.TotalAssets, &a.Cash, &a.MarketValue, &frozen, &buying, &currency); err != nil {
			return nil, fmt.Errorf("scan account snapshot: %w", err)
		}
		if frozen.Valid {
			v := frozen.Float64
			a.FrozenCash = &v
		}
		if buying.Valid {
			v := buying.Float64
			a.BuyingPower = &v
		}
		if currency.Valid {
			v := currency.String
			a.Currency = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertWatchlist inserts/updates a watchlist entry keyed by (user_id, market, code).
func (s *Store) UpsertWatchlist(userID string, entry model.WatchlistEntry) error {
	_, err := s.sql.Exec(`
		INSERT INTO watchlist (user_id, market, code, name, grp, notes, sort_order, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, market, code) DO UPDATE SET
			name = excluded.name, grp = excluded.grp, notes = excluded.notes,
			sort_order = excluded.sort_order, active = excluded.active
	`, userID, string(entry.Market), entry.Code, nullableString(entry.Name), nullableString(entry.Group),
		nullableString(entry.Notes), entry.SortOrder, boolToInt(entry.Active))
	if err != nil {
		return fmt.Errorf("upsert watchlist entry: %w", err)
	}
	return nil
}

// FetchWatchlist returns a user's active watchlist entries.
func (s *Store) FetchWatchlist(userID string) ([]model.WatchlistEntry, error) {
	rows, err := s.sql.Query(`
		SELECT user_id, market, code, name, grp, notes, sort_order, active
		  FROM watchlist
		 WHERE user_id = ? AND active = 1
		 ORDER BY sort_order ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch watchlist: %w", err)
	}
	defer rows.Close()

	var out []model.WatchlistEntry
	for rows.Next() {
		var w model.WatchlistEntry
		var mkt string
		var name, grp, notes sql.NullString
		var active int
		if err := rows.Scan(&w.User, &mkt, &w.Code, &name, &grp, &notes, &w.SortOrder, &active); err != nil {
			return nil, fmt.Errorf("scan watchlist entry: %w", err)
		}
		w.Market = model.Market(mkt)
		w.Active = active != 0
		if name.Valid {
			v := name.String
			w.Name = &v
		}
		if grp.Valid {
			v := grp.String
			w.Group = &v
		}
		if notes.Valid {
			v := notes.String
			w.Notes = &v
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// InsertSyncLog appends a sync-run record.
func (s *Store) InsertSyncLog(log model.SyncLog) error {
	_, err := s.sql.Exec(`
		INSERT INTO sync_logs (id, user_id, sync_type, status, records_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, nullableString(log.User), string(log.SyncType), string(log.Status), log.RecordsCount,
		nullableString(log.Error), log.StartedAt, nullableString(log.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}
	return nil
}

// RecentSyncLogs returns the most recent sync-log rows for a user, newest first.
func (s *Store) RecentSyncLogs(userID string, limit int) ([]model.SyncLog, error) {
	rows, err := s.sql.Query(`
		SELECT id, user_id, sync_type, status, records_count, error, started_at, finished_at
		  FROM sync_logs
		 WHERE user_id = ? OR user_id IS NULL
		 ORDER BY started_at DESC
		 LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch sync logs: %w", err)
	}
	defer rows.Close()

	var out []model.SyncLog
	for rows.Next() {
		var l model.SyncLog
		var user, errMsg, finished sql.NullString
		var syncType, status string
		if err := rows.Scan(&l.ID, &user, &syncType, &status, &l.RecordsCount, &errMsg, &l.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		l.SyncType = model.SyncType(syncType)
		l.Status = model.SyncStatus(status)
		if user.Valid {
			v := user.String
			l.User = &v
		}
		if errMsg.Valid {
			v := errMsg.String
			l.Error = &v
		}
		if finished.Valid {
			v := finished.String
			l.FinishedAt = &v
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullableString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
