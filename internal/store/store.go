// Package store is the relational persistence layer for bars and entities
// (C1 Bar Store, C2 Entity Store). It owns the SQLite schema and exposes
// typed upsert/query methods; nothing above this package talks SQL.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"investment-analyzer/internal/logger"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database connection.
type Store struct {
	sql *sql.DB
}

func dbPath() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "analytics.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "analytics.db")
}

// Open opens (or creates) the SQLite database at the default path and runs
// migrations.
func Open() (*Store, error) {
	return OpenAt(dbPath())
}

// OpenAt opens (or creates) the SQLite database at path and runs migrations.
// Tests use this with a temp-dir path; production code uses Open.
func OpenAt(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}
	s := &Store{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	logger.Success("STORE", fmt.Sprintf("Opened %s", path))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.sql.Close()
}

// SqlDB returns the underlying *sql.DB for use by other packages.
func (s *Store) SqlDB() *sql.DB {
	return s.sql
}

func (s *Store) migrate() error {
	version := 0
	s.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS users (
				id         TEXT PRIMARY KEY,
				name       TEXT NOT NULL,
				created_at TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS accounts (
				id            TEXT PRIMARY KEY,
				user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				broker_acc_id TEXT NOT NULL,
				label         TEXT,
				created_at    TEXT NOT NULL,
				UNIQUE(user_id, broker_acc_id)
			);
			CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);

			CREATE TABLE IF NOT EXISTS positions (
				id             INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id     TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				snapshot_date  TEXT NOT NULL,
				market         TEXT NOT NULL,
				code           TEXT NOT NULL,
				qty            REAL NOT NULL,
				can_sell_qty   REAL,
				cost_price     REAL NOT NULL,
				market_price   REAL NOT NULL,
				market_value   REAL NOT NULL,
				pl_value       REAL NOT NULL,
				pl_ratio       REAL NOT NULL,
				side           TEXT NOT NULL,
				UNIQUE(account_id, snapshot_date, market, code)
			);
			CREATE INDEX IF NOT EXISTS idx_positions_account_date ON positions(account_id, snapshot_date);

			CREATE TABLE IF NOT EXISTS trades (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				deal_id     TEXT NOT NULL,
				order_id    TEXT,
				trade_time  TEXT NOT NULL,
				market      TEXT NOT NULL,
				code        TEXT NOT NULL,
				side        TEXT NOT NULL,
				qty         REAL NOT NULL,
				price       REAL NOT NULL,
				amount      REAL,
				fee         REAL,
				currency    TEXT,
				UNIQUE(account_id, deal_id)
			);
			CREATE INDEX IF NOT EXISTS idx_trades_account_time ON trades(account_id, trade_time);
			CREATE INDEX IF NOT EXISTS idx_trades_account_symbol ON trades(account_id, market, code);

			CREATE TABLE IF NOT EXISTS account_snapshots (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				account_id    TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
				snapshot_date TEXT NOT NULL,
				total_assets  REAL NOT NULL,
				cash          REAL NOT NULL,
				market_value  REAL NOT NULL,
				frozen_cash   REAL,
				buying_power  REAL,
				currency      TEXT,
				UNIQUE(account_id, snapshot_date)
			);

			CREATE TABLE IF NOT EXISTS klines (
				market       TEXT NOT NULL,
				code         TEXT NOT NULL,
				trade_date   TEXT NOT NULL,
				open         REAL NOT NULL,
				high         REAL NOT NULL,
				low          REAL NOT NULL,
				close        REAL NOT NULL,
				volume       INTEGER NOT NULL,
				amount       REAL,
				turnover_rate REAL,
				change_pct   REAL,
				PRIMARY KEY (market, code, trade_date)
			);
			CREATE INDEX IF NOT EXISTS idx_klines_symbol ON klines(market, code);

			CREATE TABLE IF NOT EXISTS watchlist (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				market     TEXT NOT NULL,
				code       TEXT NOT NULL,
				name       TEXT,
				grp        TEXT,
				notes      TEXT,
				sort_order INTEGER NOT NULL DEFAULT 0,
				active     INTEGER NOT NULL DEFAULT 1,
				UNIQUE(user_id, market, code)
			);
			CREATE INDEX IF NOT EXISTS idx_watchlist_user ON watchlist(user_id);

			CREATE TABLE IF NOT EXISTS sync_logs (
				id            TEXT PRIMARY KEY,
				user_id       TEXT,
				sync_type     TEXT NOT NULL,
				status        TEXT NOT NULL,
				records_count INTEGER NOT NULL DEFAULT 0,
				error         TEXT,
				started_at    TEXT NOT NULL,
				finished_at   TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_sync_logs_started ON sync_logs(started_at);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("STORE", "Applied migration v1 (core schema)")
	}

	if version < 2 {
		_, err := s.sql.Exec(`
			CREATE TABLE IF NOT EXISTS price_alerts (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				market     TEXT NOT NULL,
				code       TEXT NOT NULL,
				metric     TEXT NOT NULL,
				threshold  REAL NOT NULL,
				enabled    INTEGER NOT NULL DEFAULT 1,
				created_at TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_price_alerts_user ON price_alerts(user_id);

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("STORE", "Applied migration v2 (price alerts)")
	}

	// v3: some early deployments created watchlist without sort_order/active
	// before those columns were part of v1; backfill idempotently.
	if version < 3 {
		watchlistExists, err := s.tableExists("watchlist")
		if err != nil {
			return fmt.Errorf("migration v3 check watchlist exists: %w", err)
		}
		if watchlistExists {
			if err := s.ensureTableColumn("watchlist", "sort_order", "INTEGER NOT NULL DEFAULT 0"); err != nil {
				return fmt.Errorf("migration v3 add watchlist.sort_order: %w", err)
			}
			if err := s.ensureTableColumn("watchlist", "active", "INTEGER NOT NULL DEFAULT 1"); err != nil {
				return fmt.Errorf("migration v3 add watchlist.active: %w", err)
			}
		}
		if _, err := s.sql.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (3);`); err != nil {
			return fmt.Errorf("migration v3: %w", err)
		}
		logger.Info("STORE", "Applied migration v3 (watchlist column backfill)")
	}

	return nil
}

func (s *Store) tableExists(tableName string) (bool, error) {
	var name string
	err := s.sql.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1`,
		tableName,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ensureTableColumn(tableName, columnName, columnDef string) error {
	rows, err := s.sql.Query("PRAGMA table_info(" + tableName + ")")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, columnName) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.sql.Exec("ALTER TABLE " + tableName + " ADD COLUMN " + columnName + " " + columnDef)
	return err
}
