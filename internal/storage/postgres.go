package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/quorumtrade/poolarb/internal/arbitrage"
	"github.com/quorumtrade/poolarb/internal/quorum"
	"github.com/quorumtrade/poolarb/pkg/types"
)

// PostgresConfig holds connection parameters for the Postgres store.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Logger   *zap.Logger
}

// PostgresStore persists the audit trail in Postgres.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore connects and creates the schema if needed.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db, logger: cfg.Logger}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.DBName))

	return s, nil
}

// NewPostgresStoreWithDB wraps an existing connection. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS opportunities (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			buy_venue TEXT NOT NULL,
			sell_venue TEXT NOT NULL,
			buy_price DOUBLE PRECISION NOT NULL,
			sell_price DOUBLE PRECISION NOT NULL,
			quantity DOUBLE PRECISION NOT NULL,
			gross_spread DOUBLE PRECISION NOT NULL,
			fees DOUBLE PRECISION NOT NULL,
			net_profit DOUBLE PRECISION NOT NULL,
			net_profit_pct DOUBLE PRECISION NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGINT PRIMARY KEY,
			opportunity_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			buy_venue TEXT NOT NULL,
			sell_venue TEXT NOT NULL,
			status TEXT NOT NULL,
			approvals JSONB NOT NULL DEFAULT '[]',
			quantity DOUBLE PRECISION NOT NULL,
			buy_price DOUBLE PRECISION NOT NULL,
			sell_price DOUBLE PRECISION NOT NULL,
			fees_paid DOUBLE PRECISION NOT NULL DEFAULT 0,
			realized_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
			unrecoverable BOOLEAN NOT NULL DEFAULT FALSE,
			cancel_reason TEXT NOT NULL DEFAULT '',
			settled_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS pool_events (
			id SERIAL PRIMARY KEY,
			at TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL,
			member TEXT NOT NULL DEFAULT '',
			amount DOUBLE PRECISION NOT NULL,
			shares DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS reserve_events (
			id SERIAL PRIMARY KEY,
			at TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL,
			claim_id TEXT NOT NULL DEFAULT '',
			member TEXT NOT NULL DEFAULT '',
			amount DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			date TEXT PRIMARY KEY,
			total_trades INTEGER NOT NULL,
			winning_trades INTEGER NOT NULL,
			total_profit DOUBLE PRECISION NOT NULL,
			total_loss DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_settled_at ON trades (settled_at)`,
		`CREATE INDEX IF NOT EXISTS idx_pool_events_member ON pool_events (member)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// StoreOpportunity inserts a detected opportunity.
func (s *PostgresStore) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO opportunities
			(id, symbol, buy_venue, sell_venue, buy_price, sell_price,
			 quantity, gross_spread, fees, net_profit, net_profit_pct, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		opp.ID, opp.Symbol, opp.BuyVenue, opp.SellVenue, opp.BuyPrice, opp.SellPrice,
		opp.Quantity, opp.GrossSpread, opp.Fees, opp.NetProfit, opp.NetProfitPct, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("store opportunity: %w", err)
	}
	return nil
}

// StoreTrade upserts a trade with its full approval history. Called on every
// state transition so the stored row tracks the trade's lifecycle.
func (s *PostgresStore) StoreTrade(ctx context.Context, trade *quorum.Trade) error {
	snap := trade.Snapshot()

	approvals, err := json.Marshal(snap.Approvals)
	if err != nil {
		return fmt.Errorf("marshal approvals: %w", err)
	}

	var feesPaid, realized float64
	if snap.Result != nil {
		feesPaid = snap.Result.FeesPaid
		realized = snap.Result.RealizedProfit
	}

	var settledAt sql.NullTime
	if !snap.SettledAt.IsZero() {
		settledAt = sql.NullTime{Time: snap.SettledAt, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, opportunity_id, symbol, buy_venue, sell_venue, status, approvals,
			 quantity, buy_price, sell_price, fees_paid, realized_profit,
			 unrecoverable, cancel_reason, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			approvals = EXCLUDED.approvals,
			fees_paid = EXCLUDED.fees_paid,
			realized_profit = EXCLUDED.realized_profit,
			unrecoverable = EXCLUDED.unrecoverable,
			cancel_reason = EXCLUDED.cancel_reason,
			settled_at = EXCLUDED.settled_at`,
		snap.ID, snap.Opportunity.ID, snap.Opportunity.Symbol,
		snap.Opportunity.BuyVenue, snap.Opportunity.SellVenue,
		string(snap.Status), approvals,
		snap.Opportunity.Quantity, snap.Opportunity.BuyPrice, snap.Opportunity.SellPrice,
		feesPaid, realized, snap.Unrecoverable, snap.CancelReason, settledAt,
	)
	if err != nil {
		return fmt.Errorf("store trade %d: %w", snap.ID, err)
	}
	return nil
}

// StorePoolEvent appends a pool event.
func (s *PostgresStore) StorePoolEvent(ctx context.Context, ev PoolEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pool_events (at, kind, member, amount, shares)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.At, ev.Kind, ev.Member, ev.Amount, ev.Shares,
	)
	if err != nil {
		return fmt.Errorf("store pool event: %w", err)
	}
	return nil
}

// StoreReserveEvent appends a reserve event.
func (s *PostgresStore) StoreReserveEvent(ctx context.Context, ev ReserveEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reserve_events (at, kind, claim_id, member, amount)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.At, ev.Kind, ev.ClaimID, ev.Member, ev.Amount,
	)
	if err != nil {
		return fmt.Errorf("store reserve event: %w", err)
	}
	return nil
}

// StoreDailySummary upserts the aggregate for a trading day.
func (s *PostgresStore) StoreDailySummary(ctx context.Context, sum DailySummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (date, total_trades, winning_trades, total_profit, total_loss)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			total_trades = EXCLUDED.total_trades,
			winning_trades = EXCLUDED.winning_trades,
			total_profit = EXCLUDED.total_profit,
			total_loss = EXCLUDED.total_loss`,
		sum.Date, sum.TotalTrades, sum.WinningTrades, sum.TotalProfit, sum.TotalLoss,
	)
	if err != nil {
		return fmt.Errorf("store daily summary: %w", err)
	}
	return nil
}

// TradesForMember returns settled trades dated after the member's join event.
func (s *PostgresStore) TradesForMember(ctx context.Context, member string) ([]TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.opportunity_id, t.symbol, t.buy_venue, t.sell_venue,
		       t.status, t.approvals, t.quantity, t.buy_price, t.sell_price,
		       t.fees_paid, t.realized_profit, t.unrecoverable, t.cancel_reason, t.settled_at
		FROM trades t
		WHERE t.settled_at IS NOT NULL
		  AND t.settled_at >= (
			SELECT MIN(at) FROM pool_events
			WHERE member = $1 AND kind = 'member_joined'
		  )
		ORDER BY t.id`,
		member,
	)
	if err != nil {
		return nil, fmt.Errorf("query member trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		var settledAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.OpportunityID, &rec.Symbol, &rec.BuyVenue, &rec.SellVenue,
			&rec.Status, &rec.Approvals, &rec.Quantity, &rec.BuyPrice, &rec.SellPrice,
			&rec.FeesPaid, &rec.RealizedProfit, &rec.Unrecoverable, &rec.CancelReason, &settledAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		if settledAt.Valid {
			rec.SettledAt = settledAt.Time
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return out, nil
}

// DailySummaryFor returns the stored aggregate for a date, or ErrNotFound.
func (s *PostgresStore) DailySummaryFor(ctx context.Context, date string) (*DailySummary, error) {
	var sum DailySummary
	err := s.db.QueryRowContext(ctx, `
		SELECT date, total_trades, winning_trades, total_profit, total_loss
		FROM daily_summaries WHERE date = $1`,
		date,
	).Scan(&sum.Date, &sum.TotalTrades, &sum.WinningTrades, &sum.TotalProfit, &sum.TotalLoss)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("daily summary %s: %w", date, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query daily summary: %w", err)
	}
	return &sum, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
