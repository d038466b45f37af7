package sqlstore

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ifolio/ifolio"
	"github.com/ifolio/ifolio/date"
)

func open(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSnapshotAsOf(t *testing.T) {
	db := open(t)
	rows := []ifolio.Snapshot{
		{Date: date.MustParse("2024-01-10"), Ticker: "VOO", CostBasis: dec("100"), Quantity: dec("10")},
		{Date: date.MustParse("2024-02-10"), Ticker: "VOO", CostBasis: dec("105"), Quantity: dec("15")},
	}
	for _, r := range rows {
		if err := db.UpsertSnapshot(r); err != nil {
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
		{"2024-01-31", true, "10"},
		{"2024-02-10", true, "15"},
		{"2025-01-01", true, "15"},
	}
	for _, tt := range tests {
		snap, ok, err := db.Snapshot("VOO", date.MustParse(tt.on))
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

func TestUpsertSnapshotIsIdempotent(t *testing.T) {
	db := open(t)
	row := ifolio.Snapshot{Date: date.MustParse("2024-01-10"), Ticker: "VOO", CostBasis: dec("100"), Quantity: dec("10")}
	if err := db.UpsertSnapshot(row); err != nil {
		t.Fatal(err)
	}
	row.Quantity = dec("12")
	if err := db.UpsertSnapshot(row); err != nil {
		t.Fatal(err)
	}
	snaps, err := db.SnapshotsAfter("VOO", date.Date{})
	if err != nil {
		t.Fatal(err)
	}
	if len(snaps) != 1 {
		t.Fatalf("got %d rows, want 1", len(snaps))
	}
	if snaps[0].Quantity.String() != "12" {
		t.Errorf("Quantity = %s, want 12", snaps[0].Quantity)
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	db := open(t)
	// a value REAL storage would mangle
	row := ifolio.Snapshot{Date: date.MustParse("2024-01-10"), Ticker: "BTC-USD", CostBasis: dec("43211.123456789"), Quantity: dec("0.00000001")}
	if err := db.UpsertSnapshot(row); err != nil {
		t.Fatal(err)
	}
	snap, ok, err := db.Snapshot("BTC-USD", row.Date)
	if err != nil || !ok {
		t.Fatalf("Snapshot: ok=%v err=%v", ok, err)
	}
	if snap.CostBasis.String() != "43211.123456789" || snap.Quantity.String() != "0.00000001" {
		t.Errorf("round trip mangled: basis=%s quantity=%s", snap.CostBasis, snap.Quantity)
	}
}

func TestRanges(t *testing.T) {
	db := open(t)
	if _, _, ok, err := db.Range("VOO"); err != nil || ok {
		t.Fatalf("empty Range: ok=%v err=%v", ok, err)
	}
	for _, r := range []ifolio.Snapshot{
		{Date: date.MustParse("2024-01-10"), Ticker: "VOO", CostBasis: dec("100"), Quantity: dec("10")},
		{Date: date.MustParse("2024-03-05"), Ticker: "VOO", CostBasis: dec("101"), Quantity: dec("11")},
		{Date: date.MustParse("2023-06-01"), Ticker: "QQQ", CostBasis: dec("350"), Quantity: dec("2")},
	} {
		if err := db.UpsertSnapshot(r); err != nil {
			t.Fatal(err)
		}
	}
	first, last, ok, err := db.Range("VOO")
	if err != nil || !ok {
		t.Fatalf("Range: ok=%v err=%v", ok, err)
	}
	if first.String() != "2024-01-10" || last.String() != "2024-03-05" {
		t.Errorf("Range(VOO) = %s..%s", first, last)
	}
	first, last, ok, err = db.OverallRange()
	if err != nil || !ok {
		t.Fatalf("OverallRange: ok=%v err=%v", ok, err)
	}
	if first.String() != "2023-06-01" || last.String() != "2024-03-05" {
		t.Errorf("OverallRange = %s..%s", first, last)
	}

	tickers, err := db.Tickers()
	if err != nil {
		t.Fatal(err)
	}
	if len(tickers) != 2 || tickers[0] != "QQQ" || tickers[1] != "VOO" {
		t.Errorf("Tickers = %v", tickers)
	}
}

func TestGains(t *testing.T) {
	db := open(t)
	for _, g := range []ifolio.RealizedGain{
		{Date: date.MustParse("2024-01-10"), Ticker: "VOO", Gain: dec("50")},
		{Date: date.MustParse("2024-02-10"), Ticker: "VOO", Gain: dec("30")}, // cumulative may decrease
	} {
		if err := db.UpsertGain(g); err != nil {
			t.Fatal(err)
		}
	}
	g, ok, err := db.Gain("VOO", date.MustParse("2024-01-31"))
	if err != nil || !ok {
		t.Fatalf("Gain: ok=%v err=%v", ok, err)
	}
	if g.String() != "50" {
		t.Errorf("Gain = %s, want 50", g)
	}
	g, ok, _ = db.Gain("VOO", date.MustParse("2024-03-01"))
	if !ok || g.String() != "30" {
		t.Errorf("Gain = %s ok=%v, want 30 true", g, ok)
	}
	if _, ok, _ := db.Gain("QQQ", date.MustParse("2024-03-01")); ok {
		t.Error("Gain(QQQ) should report no row")
	}
}

func TestPricesAndCash(t *testing.T) {
	db := open(t)
	on := date.MustParse("2024-07-05")
	if err := db.SetPrice(on, "VOO", dec("505.82")); err != nil {
		t.Fatal(err)
	}
	if err := db.SetPrice(on, "VOO", dec("505.83")); err != nil { // upsert
		t.Fatal(err)
	}
	p, ok, err := db.Price("VOO", on)
	if err != nil || !ok {
		t.Fatalf("Price: ok=%v err=%v", ok, err)
	}
	if p.String() != "505.83" {
		t.Errorf("Price = %s, want 505.83", p)
	}
	// prices are exact-date lookups, not as-of
	if _, ok, _ := db.Price("VOO", on.Add(1)); ok {
		t.Error("Price on the next day should miss")
	}

	if err := db.SetBalance(date.MustParse("2024-07-01"), dec("1200.50")); err != nil {
		t.Fatal(err)
	}
	b, ok, err := db.Balance(date.MustParse("2024-07-10"))
	if err != nil || !ok {
		t.Fatalf("Balance: ok=%v err=%v", ok, err)
	}
	if b.String() != "1200.5" {
		t.Errorf("Balance = %s, want 1200.5", b)
	}
}

func TestTransactions(t *testing.T) {
	db := open(t)
	txns := []ifolio.Transaction{
		{Date: date.MustParse("2024-02-01"), Ticker: "VOO", Source: "broker-b", Cost: dec("500"), Quantity: dec("1")},
		{Date: date.MustParse("2024-01-01"), Ticker: "VOO", Source: "broker-a", Cost: dec("450"), Quantity: dec("1")},
		{Date: date.MustParse("2024-01-15"), Ticker: "QQQ", Source: "broker-a", Cost: dec("400"), Quantity: dec("1")},
	}
	for _, tx := range txns {
		if err := db.InsertTransaction(tx); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.Transactions("VOO", date.MustParse("2024-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d transactions, want 2", len(got))
	}
	if got[0].Source != "broker-a" || got[1].Source != "broker-b" {
		t.Errorf("wrong order: %v then %v", got[0].Source, got[1].Source)
	}
	got, err = db.Transactions("VOO", date.MustParse("2024-01-02"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("from-filter: got %d transactions, want 1", len(got))
	}
}

func TestSplits(t *testing.T) {
	db := open(t)
	sp := ifolio.Split{Ticker: "NVDA", Date: date.MustParse("2024-06-10"), Before: dec("1"), After: dec("10")}
	if err := db.SaveSplit(sp); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSplit(sp); err != nil { // idempotent
		t.Fatal(err)
	}
	splits, err := db.Splits()
	if err != nil {
		t.Fatal(err)
	}
	if len(splits) != 1 {
		t.Fatalf("got %d splits, want 1", len(splits))
	}
	if splits[0].Factor().String() != "10" {
		t.Errorf("Factor = %s, want 10", splits[0].Factor())
	}
}
