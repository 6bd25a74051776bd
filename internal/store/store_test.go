package store

import (
	"database/sql"
	"fmt"
	"testing"

	"investment-analyzer/internal/model"

	_ "modernc.org/sqlite"
)

// openTestStore opens an in-memory SQLite DB and runs migrations.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	s := &Store{sql: sqlDB}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func TestMigrate_CoreTablesExist(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	tables := []string{"users", "accounts", "positions", "trades", "account_snapshots", "klines", "watchlist", "sync_logs", "price_alerts"}
	for _, tbl := range tables {
		ok, err := s.tableExists(tbl)
		if err != nil {
			t.Fatalf("tableExists(%s): %v", tbl, err)
		}
		if !ok {
			t.Errorf("expected table %s to exist after migration", tbl)
		}
	}
}

// S6: re-ingesting the identical bar payload a second time persists 0 new
// rows (invariant 8, idempotent ingest).
func TestS6_UpsertBars_Idempotent(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	bars := make([]model.Bar, 10)
	for i := range bars {
		ds := fmt.Sprintf("2024-05-%02d", 1+i)
		bars[i] = model.Bar{Market: model.MarketUS, Code: "AAPL", Date: ds, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000}
	}

	n1, err := s.UpsertBars(bars)
	if err != nil {
		t.Fatalf("first UpsertBars: %v", err)
	}
	if n1 != 10 {
		t.Errorf("first ingest inserted = %d, want 10", n1)
	}

	n2, err := s.UpsertBars(bars)
	if err != nil {
		t.Fatalf("second UpsertBars: %v", err)
	}
	if n2 != 0 {
		t.Errorf("second ingest (identical payload) inserted = %d, want 0", n2)
	}

	got, err := s.FetchBars(model.MarketUS, "AAPL", "2024-05-01", "2024-05-31")
	if err != nil {
		t.Fatalf("FetchBars: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("FetchBars len = %d, want 10", len(got))
	}
}

func TestUpsertBars_ChangedBarOverwrites(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	bar := model.Bar{Market: model.MarketHK, Code: "00700", Date: "2024-06-01", Open: 300, High: 305, Low: 298, Close: 302, Volume: 5000}
	if _, err := s.UpsertBars([]model.Bar{bar}); err != nil {
		t.Fatalf("initial upsert: %v", err)
	}

	bar.Close = 310
	bar.Volume = 6000
	n, err := s.UpsertBars([]model.Bar{bar})
	if err != nil {
		t.Fatalf("revised upsert: %v", err)
	}
	if n != 1 {
		t.Errorf("revised bar should count as inserted (changed), got %d", n)
	}

	got, err := s.FetchBars(model.MarketHK, "00700", "2024-06-01", "2024-06-01")
	if err != nil || len(got) != 1 {
		t.Fatalf("FetchBars: %v, len=%d", err, len(got))
	}
	if got[0].Close != 310 || got[0].Volume != 6000 {
		t.Errorf("overwritten bar = %+v, want close=310 volume=6000", got[0])
	}
}

func TestUpsertTrades_DedupByDealID(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.EnsureUser("u1", "Alice", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	accID, err := s.EnsureAccount("u1", "broker-1", "main", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	fill := model.Fill{DealID: "d1", TradeTime: "2024-06-01T10:00:00Z", Market: model.MarketUS, Code: "AAPL", Side: model.TradeBuy, Qty: 100, Price: 150}
	n1, err := s.UpsertTrades(accID, []model.Fill{fill})
	if err != nil {
		t.Fatalf("first UpsertTrades: %v", err)
	}
	if n1 != 1 {
		t.Errorf("first insert = %d, want 1", n1)
	}

	n2, err := s.UpsertTrades(accID, []model.Fill{fill})
	if err != nil {
		t.Fatalf("second UpsertTrades: %v", err)
	}
	if n2 != 0 {
		t.Errorf("duplicate deal_id insert = %d, want 0", n2)
	}

	trades, err := s.FetchTrades(accID, model.MarketUS, "AAPL")
	if err != nil || len(trades) != 1 {
		t.Fatalf("FetchTrades: %v, len=%d", err, len(trades))
	}
}

func TestUpsertPositions_AppendPerDate(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.EnsureUser("u1", "Alice", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	accID, _ := s.EnsureAccount("u1", "broker-1", "main", "2024-01-01T00:00:00Z")

	p := model.Position{SnapshotDate: "2024-06-01", Market: model.MarketHK, Code: "00700", Qty: 100, CostPrice: 300, MarketPrice: 320, Side: model.SideLong}
	p.Derive()

	if _, err := s.UpsertPositions(accID, []model.Position{p}); err != nil {
		t.Fatalf("UpsertPositions day1: %v", err)
	}

	p2 := p
	p2.SnapshotDate = "2024-06-02"
	p2.MarketPrice = 330
	p2.Derive()
	if _, err := s.UpsertPositions(accID, []model.Position{p2}); err != nil {
		t.Fatalf("UpsertPositions day2: %v", err)
	}

	latest, err := s.FetchLatestPositions(accID)
	if err != nil {
		t.Fatalf("FetchLatestPositions: %v", err)
	}
	if len(latest) != 1 || latest[0].SnapshotDate != "2024-06-02" {
		t.Fatalf("FetchLatestPositions = %+v, want 2024-06-02 snapshot", latest)
	}

	day1, err := s.FetchPositionsOnDate(accID, "2024-06-01")
	if err != nil || len(day1) != 1 {
		t.Fatalf("FetchPositionsOnDate(day1): %v, len=%d", err, len(day1))
	}
}

func TestWatchlist_UpsertAndFetch(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	if err := s.EnsureUser("u1", "Alice", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	entry := model.WatchlistEntry{User: "u1", Market: model.MarketUS, Code: "NVDA", SortOrder: 1, Active: true}
	if err := s.UpsertWatchlist("u1", entry); err != nil {
		t.Fatalf("UpsertWatchlist: %v", err)
	}

	got, err := s.FetchWatchlist("u1")
	if err != nil || len(got) != 1 {
		t.Fatalf("FetchWatchlist: %v, len=%d", err, len(got))
	}
	if got[0].Code != "NVDA" {
		t.Errorf("watchlist entry code = %q, want NVDA", got[0].Code)
	}
}

func TestSyncLog_InsertAndFetch(t *testing.T) {
	s := openTestStore(t)
	defer s.Close()

	log := model.SyncLog{ID: "sync-1", SyncType: model.SyncKlines, Status: model.SyncSuccess, RecordsCount: 10, StartedAt: "2024-06-01T00:00:00Z"}
	if err := s.InsertSyncLog(log); err != nil {
		t.Fatalf("InsertSyncLog: %v", err)
	}

	logs, err := s.RecentSyncLogs("anyone", 5)
	if err != nil {
		t.Fatalf("RecentSyncLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].ID != "sync-1" {
		t.Fatalf("RecentSyncLogs = %+v", logs)
	}
}
