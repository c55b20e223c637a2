package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"portfoliotracker/internal/portfolio"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	sqlDB, err := Open(dbFile)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewSQLiteStore(sqlDB)
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestAddTransaction(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	tx, err := s.AddTransaction(ctx, portfolio.Transaction{
		UserID:        "u1",
		Symbol:        " aapl ",
		Type:          "buy",
		Shares:        10,
		PricePerShare: 100,
		Date:          day(2025, 1, 10),
	})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	if tx.ID == "" || tx.Symbol != "AAPL" || tx.Type != portfolio.Buy || tx.TotalAmount != 1000 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestAddTransaction_Invalid(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	bad := []portfolio.Transaction{
		{Symbol: "", Type: portfolio.Buy, Shares: 1},
		{Symbol: "AAPL", Type: "GIFT", Shares: 1},
		{Symbol: "AAPL", Type: portfolio.Buy, Shares: 0},
		{Symbol: "AAPL", Type: portfolio.Sell, Shares: 1, PricePerShare: -1},
	}
	for _, tx := range bad {
		if _, err := s.AddTransaction(ctx, tx); !errors.Is(err, ErrInvalid) {
			t.Fatalf("want ErrInvalid for %+v, got %v", tx, err)
		}
	}
}

func TestTransactions_NewestFirst(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	for i, d := range []time.Time{day(2025, 1, 1), day(2025, 3, 1), day(2025, 2, 1)} {
		if _, err := s.AddTransaction(ctx, portfolio.Transaction{UserID: "u1", Symbol: "BTC", Type: portfolio.Buy, Shares: float64(i + 1), PricePerShare: 1, Date: d}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := s.AddTransaction(ctx, portfolio.Transaction{UserID: "u2", Symbol: "ETH", Type: portfolio.Buy, Shares: 1, PricePerShare: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	txs, err := s.Transactions(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if !txs[0].Date.Equal(day(2025, 3, 1)) || !txs[2].Date.Equal(day(2025, 1, 1)) {
		t.Fatalf("unexpected order: %v %v %v", txs[0].Date, txs[1].Date, txs[2].Date)
	}
}

func TestHoldings_FromLedger(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	add := func(sym string, typ portfolio.TxType, shares, price float64) {
		t.Helper()
		if _, err := s.AddTransaction(ctx, portfolio.Transaction{UserID: "u1", Symbol: sym, Type: typ, Shares: shares, PricePerShare: price}); err != nil {
			t.Fatalf("add %s: %v", sym, err)
		}
	}
	add("AAPL", portfolio.Buy, 10, 100)
	add("AAPL", portfolio.Buy, 10, 200)
	add("AAPL", portfolio.Sell, 5, 150)
	add("AAPL", portfolio.Dividend, 1, 3)
	add("PTT", portfolio.Buy, 100, 35)
	add("ETH", portfolio.Buy, 1, 2000)
	add("ETH", portfolio.Sell, 1, 2500)

	hs, err := s.Holdings(ctx, "u1")
	if err != nil {
		t.Fatalf("holdings: %v", err)
	}
	if len(hs) != 2 {
		t.Fatalf("expected 2 open positions, got %+v", hs)
	}
	aapl := hs[0]
	if aapl.Symbol != "AAPL" || aapl.TotalShares != 15 || aapl.TotalInvested != 2250 || aapl.AvgCostBasis != 150 || aapl.Currency != "USD" {
		t.Fatalf("unexpected AAPL holding: %+v", aapl)
	}
	if hs[1].Symbol != "PTT" || hs[1].Currency != "THB" {
		t.Fatalf("unexpected PTT holding: %+v", hs[1])
	}

	other, err := s.Holdings(ctx, "nobody")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected no holdings, got %+v %v", other, err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	tx, err := s.AddTransaction(ctx, portfolio.Transaction{UserID: "u1", Symbol: "BTC", Type: portfolio.Buy, Shares: 1, PricePerShare: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u2", tx.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows for other user, got %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", tx.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows on second delete, got %v", err)
	}
}
