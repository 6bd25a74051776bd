package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"investment-analyzer/internal/model"
	"investment-analyzer/internal/provider"
	"investment-analyzer/internal/store"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenAt(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func fixedClock(ts string) func() time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func tenBars(market model.Market, code string) []model.Bar {
	bars := make([]model.Bar, 10)
	for i := range bars {
		bars[i] = model.Bar{
			Market: market, Code: code, Date: fmt.Sprintf("2024-05-%02d", 1+i),
			Open: 300, High: 305, Low: 298, Close: 302, Volume: 1000,
		}
	}
	return bars
}

// S6: the provider returns an identical ten-bar payload twice for HK.00700;
// the first sync run persists 10 rows (SUCCESS, records_count=10), the
// second persists 0 (SUCCESS, records_count=0).
func TestS6_SyncKlines_Idempotent(t *testing.T) {
	st := openTestStore(t)
	mock := provider.NewMock()
	mock.Bars["HK.00700"] = tenBars(model.MarketHK, "00700")

	orch := New(st, mock, mock, DefaultConfig())
	orch.now = fixedClock("2024-05-20T00:00:00Z")

	syms := []symbolJob{{Market: model.MarketHK, Code: "00700"}}

	log1, err := orch.SyncKlines(context.Background(), "u1", syms)
	if err != nil {
		t.Fatalf("first SyncKlines: %v", err)
	}
	if log1.Status != model.SyncSuccess || log1.RecordsCount != 10 {
		t.Fatalf("first sync = %+v, want SUCCESS/10", log1)
	}

	log2, err := orch.SyncKlines(context.Background(), "u1", syms)
	if err != nil {
		t.Fatalf("second SyncKlines: %v", err)
	}
	if log2.Status != model.SyncSuccess || log2.RecordsCount != 0 {
		t.Fatalf("second sync = %+v, want SUCCESS/0", log2)
	}
}

func TestSyncKlines_UnknownSymbolCountsZeroNotFatal(t *testing.T) {
	st := openTestStore(t)
	mock := provider.NewMock()
	orch := New(st, mock, mock, DefaultConfig())
	orch.now = fixedClock("2024-05-20T00:00:00Z")

	log, err := orch.SyncKlines(context.Background(), "u1", []symbolJob{{Market: model.MarketUS, Code: "MISSING"}})
	if err != nil {
		t.Fatalf("SyncKlines: %v", err)
	}
	if log.RecordsCount != 0 {
		t.Errorf("records = %d, want 0 for a NotFound symbol", log.RecordsCount)
	}
}

func TestSyncPositions_UpsertsLatestSnapshot(t *testing.T) {
	st := openTestStore(t)
	if err := st.EnsureUser("u1", "Alice", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	accID, err := st.EnsureAccount("u1", "broker-1", "main", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	mock := provider.NewMock()
	mock.Positions[accID] = []model.Position{
		{Market: model.MarketUS, Code: "AAPL", Qty: 10, CostPrice: 100, MarketPrice: 110, Side: model.SideLong},
	}

	orch := New(st, mock, mock, DefaultConfig())
	orch.now = fixedClock("2024-05-20T00:00:00Z")

	log, err := orch.SyncPositions(context.Background(), "u1", []string{accID})
	if err != nil {
		t.Fatalf("SyncPositions: %v", err)
	}
	if log.RecordsCount != 1 {
		t.Fatalf("records = %d, want 1", log.RecordsCount)
	}

	got, err := st.FetchLatestPositions(accID)
	if err != nil || len(got) != 1 {
		t.Fatalf("FetchLatestPositions: %v, len=%d", err, len(got))
	}
	if got[0].MarketValue != 1100 {
		t.Errorf("derived market value = %v, want 1100", got[0].MarketValue)
	}
}

func TestSyncAll_AllSubcomponentsSucceed(t *testing.T) {
	st := openTestStore(t)
	if err := st.EnsureUser("u1", "Alice", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	accID, err := st.EnsureAccount("u1", "broker-1", "main", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	mock := provider.NewMock()
	mock.Positions[accID] = []model.Position{
		{Market: model.MarketUS, Code: "AAPL", Qty: 10, CostPrice: 100, MarketPrice: 110, Side: model.SideLong},
	}
	mock.Bars["US.AAPL"] = tenBars(model.MarketUS, "AAPL")

	orch := New(st, mock, mock, DefaultConfig())
	orch.now = fixedClock("2024-05-20T00:00:00Z")

	log, err := orch.SyncAll(context.Background(), "u1", []string{accID}, "2024-01-01T00:00:00Z", "2024-05-20T00:00:00Z")
	if err != nil {
		t.Fatalf("SyncAll unexpected hard error: %v", err)
	}
	if log.Status != model.SyncSuccess {
		t.Errorf("status = %v, want SUCCESS when nothing fails", log.Status)
	}
	if log.RecordsCount == 0 {
		t.Errorf("records = 0, want positions+klines to contribute")
	}
}

// failingPositionsBroker wraps a Mock but always fails FetchPositions, to
// exercise SyncAll's PARTIAL semantics when one subcomponent errors.
type failingPositionsBroker struct {
	*provider.Mock
}

func (f failingPositionsBroker) FetchPositions(ctx context.Context, account string) ([]model.Position, error) {
	return nil, fmt.Errorf("broker unavailable")
}

func TestSyncAll_PartialOnOneSubcomponentFailure(t *testing.T) {
	st := openTestStore(t)
	if err := st.EnsureUser("u1", "Alice", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	accID, err := st.EnsureAccount("u1", "broker-1", "main", "2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}

	mock := provider.NewMock()
	mock.Bars["US.AAPL"] = tenBars(model.MarketUS, "AAPL")
	broker := failingPositionsBroker{Mock: mock}

	orch := New(st, mock, broker, DefaultConfig())
	orch.now = fixedClock("2024-05-20T00:00:00Z")

	log, err := orch.SyncAll(context.Background(), "u1", []string{accID}, "2024-01-01T00:00:00Z", "2024-05-20T00:00:00Z")
	if err == nil {
		t.Fatal("expected SyncAll to surface the positions failure")
	}
	if log.Status != model.SyncPartial {
		t.Errorf("status = %v, want PARTIAL", log.Status)
	}
}
