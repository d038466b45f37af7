package ifolio

import (
	"testing"

	"github.com/ifolio/ifolio/date"
)

func TestMemStoreSnapshotAsOf(t *testing.T) {
	m := NewMemStore()
	for _, s := range []Snapshot{
		{Date: date.MustParse("2024-02-10"), Ticker: "VOO", CostBasis: dec("105"), Quantity: dec("15")},
		{Date: date.MustParse("2024-01-10"), Ticker: "VOO", CostBasis: dec("100"), Quantity: dec("10")},
	} {
		if err := m.UpsertSnapshot(s); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		on       string
		ok       bool
		quantity string
	}{
		{"2024-01-09", false, ""},
		{"2024-01-10", true, "10"},
		{"2024-02-09", true, "10"},
		{"2024-02-10", true, "15"},
		{"2030-01-01", true, "15"},
	}
	for _, tt := range tests {
		snap, ok, err := m.Snapshot("VOO", date.MustParse(tt.on))
		if err != nil {
			t.Fatal(err)
		}
		if ok != tt.ok {
			t.Errorf("Snapshot(VOO, %s) ok = %v, want %v", tt.on, ok, tt.ok)
			continue
		}
		if ok && snap.Quantity.String() != tt.quantity {
			t.Errorf("Snapshot(VOO, %s).Quantity = %s, want %s", tt.on, snap.Quantity, tt.quantity)
		}
	}
}

func TestMemStoreUpsertReplacesSameDate(t *testing.T) {
	m := NewMemStore()
	s := Snapshot{Date: date.MustParse("2024-01-10"), Ticker: "VOO", CostBasis: dec("100"), Quantity: dec("10")}
	if err := m.UpsertSnapshot(s); err != nil {
		t.Fatal(err)
	}
	s.Quantity = dec("12")
	if err := m.UpsertSnapshot(s); err != nil {
		t.Fatal(err)
	}
	rows, err := m.SnapshotsAfter("VOO", date.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Quantity.String() != "12" {
		t.Errorf("rows = %v", rows)
	}
}

func TestMemStoreSnapshotsAfter(t *testing.T) {
	m := NewMemStore()
	for _, day := range []string{"2024-01-10", "2024-02-10", "2024-03-10"} {
		if err := m.UpsertSnapshot(Snapshot{Date: date.MustParse(day), Ticker: "VOO", CostBasis: dec("1"), Quantity: dec("1")}); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := m.SnapshotsAfter("VOO", date.MustParse("2024-01-10"))
	if err != nil {
		t.Fatal(err)
	}
	// strictly after
	if len(rows) != 2 || rows[0].Date.String() != "2024-02-10" {
		t.Errorf("rows = %v", rows)
	}
}

func TestMemStoreRangesAndTickers(t *testing.T) {
	m := NewMemStore()
	if _, _, ok, _ := m.OverallRange(); ok {
		t.Fatal("empty store reports a range")
	}
	for _, s := range []Snapshot{
		{Date: date.MustParse("2024-01-10"), Ticker: "VOO", CostBasis: dec("1"), Quantity: dec("1")},
		{Date: date.MustParse("2024-03-10"), Ticker: "VOO", CostBasis: dec("1"), Quantity: dec("1")},
		{Date: date.MustParse("2023-06-01"), Ticker: "QQQ", CostBasis: dec("1"), Quantity: dec("1")},
	} {
		if err := m.UpsertSnapshot(s); err != nil {
			t.Fatal(err)
		}
	}
	tickers, _ := m.Tickers()
	if len(tickers) != 2 || tickers[0] != "QQQ" {
		t.Errorf("Tickers = %v", tickers)
	}
	first, last, ok, _ := m.Range("VOO")
	if !ok || first.String() != "2024-01-10" || last.String() != "2024-03-10" {
		t.Errorf("Range(VOO) = %s..%s ok=%v", first, last, ok)
	}
	first, last, ok, _ = m.OverallRange()
	if !ok || first.String() != "2023-06-01" || last.String() != "2024-03-10" {
		t.Errorf("OverallRange = %s..%s ok=%v", first, last, ok)
	}
}

func TestMemStoreCashAsOf(t *testing.T) {
	m := NewMemStore()
	if _, ok, _ := m.Balance(date.MustParse("2024-01-01")); ok {
		t.Fatal("empty store reports a balance")
	}
	if err := m.SetBalance(date.MustParse("2024-01-10"), dec("1000")); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBalance(date.MustParse("2024-02-10"), dec("800")); err != nil {
		t.Fatal(err)
	}
	b, ok, _ := m.Balance(date.MustParse("2024-01-31"))
	if !ok || b.String() != "1000" {
		t.Errorf("Balance = %s ok=%v", b, ok)
	}
	b, ok, _ = m.Balance(date.MustParse("2024-06-01"))
	if !ok || b.String() != "800" {
		t.Errorf("Balance = %s ok=%v", b, ok)
	}
}

func TestMemStoreTransactions(t *testing.T) {
	m := NewMemStore()
	for _, tx := range []Transaction{
		{Date: date.MustParse("2024-02-01"), Ticker: "VOO", Source: "b", Cost: dec("500"), Quantity: dec("1")},
		{Date: date.MustParse("2024-01-01"), Ticker: "VOO", Source: "a", Cost: dec("450"), Quantity: dec("1")},
	} {
		if err := m.InsertTransaction(tx); err != nil {
			t.Fatal(err)
		}
	}
	// inserting the same key again replaces, not duplicates
	if err := m.InsertTransaction(Transaction{Date: date.MustParse("2024-01-01"), Ticker: "VOO", Source: "a", Cost: dec("460"), Quantity: dec("1")}); err != nil {
		t.Fatal(err)
	}
	txns, err := m.Transactions("VOO", date.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
	if txns[0].Cost.String() != "460" {
		t.Errorf("upsert did not replace: %s", txns[0].Cost)
	}
	txns, _ = m.Transactions("VOO", date.MustParse("2024-01-02"))
	if len(txns) != 1 {
		t.Errorf("from-filter: got %d, want 1", len(txns))
	}
}
