package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/pkg/types"
)

func TestPostgresStoreOpportunity(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresStoreWithDB(db, zap.NewNop())
	opp := arbitrage.NewOpportunity("BTC/USD", "binance", "kraken",
		42000, 42500, 0.02, 0.001, 0.001)

	mock.ExpectExec("INSERT INTO opportunities").
		WithArgs(opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue,
			opp.BuyPrice, opp.SellPrice, opp.Quantity, opp.GrossSpread,
			opp.Fees, opp.NetProfit, opp.NetProfitPct, opp.DetectedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.StoreOpportunity(context.Background(), opp); err != nil {
		t.Fatalf("StoreOpportunity: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStorePoolEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresStoreWithDB(db, zap.NewNop())
	ev := PoolEvent{
		At:     time.Now(),
		Kind:   "member_joined",
		Member: "0xalice",
		Amount: 1000,
		Shares: 1000,
	}

	mock.ExpectExec("INSERT INTO pool_events").
		WithArgs(ev.At, ev.Kind, ev.Member, ev.Amount, ev.Shares).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.StorePoolEvent(context.Background(), ev); err != nil {
		t.Fatalf("StorePoolEvent: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresDailySummaryRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	s := NewPostgresStoreWithDB(db, zap.NewNop())
	sum := DailySummary{
		Date:          "2026-03-14",
		TotalTrades:   7,
		WinningTrades: 5,
		TotalProfit:   310.5,
		TotalLoss:     42.0,
	}

	mock.ExpectExec("INSERT INTO daily_summaries").
		WithArgs(sum.Date, sum.TotalTrades, sum.WinningTrades, sum.TotalProfit, sum.TotalLoss).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.StoreDailySummary(context.Background(), sum); err != nil {
		t.Fatalf("StoreDailySummary: %v", err)
	}

	rows := sqlmock.NewRows([]string{"date", "total_trades", "winning_trades", "total_profit", "total_loss"}).
		AddRow(sum.Date, sum.TotalTrades, sum.WinningTrades, sum.TotalProfit, sum.TotalLoss)
	mock.ExpectQuery("SELECT date, total_trades").
		WithArgs(sum.Date).
		WillReturnRows(rows)

	got, err := s.DailySummaryFor(context.Background(), sum.Date)
	if err != nil {
		t.Fatalf("DailySummaryFor: %v", err)
	}
	if *got != sum {
		t.Errorf("summary = %+v, want %+v", got, sum)
	}

	// Missing date maps to the not-found sentinel.
	mock.ExpectQuery("SELECT date, total_trades").
		WithArgs("2026-03-15").
		WillReturnRows(sqlmock.NewRows([]string{"date", "total_trades", "winning_trades", "total_profit", "total_loss"}))

	_, err = s.DailySummaryFor(context.Background(), "2026-03-15")
	if !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("missing summary err = %v, want ErrNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
