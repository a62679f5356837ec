package backtest

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/quantfold/backtest/internal/logger"
	"github.com/quantfold/backtest/internal/types"
	"github.com/quantfold/backtest/pkg/errors"
)

// ResultStore persists finished runs to DuckDB so results can be queried and
// compared across runs. Pass ":memory:" as the path for an ephemeral store.
type ResultStore struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

// NewResultStore opens (or creates) the database at path.
func NewResultStore(path string, log *logger.Logger) (*ResultStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultStore, err, "failed to open result database at %s", path)
	}

	store := &ResultStore{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (s *ResultStore) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			ran_at TIMESTAMP,
			symbols TEXT,
			interval TEXT,
			start_date TIMESTAMP,
			end_date TIMESTAMP,
			initial_capital DOUBLE,
			final_equity DOUBLE,
			total_return DOUBLE,
			total_return_percent DOUBLE,
			buy_and_hold_return DOUBLE,
			sharpe_ratio DOUBLE,
			max_drawdown DOUBLE,
			total_trades INTEGER,
			win_rate DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id BIGINT,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			entry_price DOUBLE,
			entry_time TIMESTAMP,
			exit_price DOUBLE,
			exit_time TIMESTAMP,
			fees DOUBLE,
			pnl DOUBLE,
			pnl_percent DOUBLE,
			status TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT,
			time TIMESTAMP,
			equity DOUBLE,
			cash DOUBLE,
			positions_value DOUBLE,
			drawdown DOUBLE,
			drawdown_percent DOUBLE
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeResultStore, "failed to create result tables", err)
		}
	}

	return nil
}

// SaveResult writes the run header, trades, and snapshots in one transaction.
func (s *ResultStore) SaveResult(result *types.BacktestResult) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultStore, "failed to begin transaction", err)
	}

	symbols := ""
	for i, symbol := range result.Symbols {
		if i > 0 {
			symbols += ","
		}

		symbols += symbol
	}

	_, err = s.sq.
		Insert("runs").
		Columns("id", "ran_at", "symbols", "interval", "start_date", "end_date",
			"initial_capital", "final_equity", "total_return", "total_return_percent",
			"buy_and_hold_return", "sharpe_ratio", "max_drawdown", "total_trades", "win_rate").
		Values(result.ID, result.RanAt, symbols, result.Interval, result.StartDate, result.EndDate,
			result.InitialCapital, result.FinalEquity, result.TotalReturn, result.TotalReturnPercent,
			result.BuyAndHoldReturn, result.Metrics.SharpeRatio, result.Metrics.MaxDrawdown,
			result.Metrics.TotalTrades, result.Metrics.WinRate).
		RunWith(tx).
		Exec()
	if err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeResultStore, "failed to insert run", err)
	}

	for _, trade := range result.Trades {
		var (
			exitPrice sql.NullFloat64
			exitTime  sql.NullTime
		)

		if trade.ExitPrice.IsSome() {
			exitPrice = sql.NullFloat64{Float64: trade.ExitPrice.Unwrap(), Valid: true}
		}

		if trade.ExitTime.IsSome() {
			exitTime = sql.NullTime{Time: trade.ExitTime.Unwrap(), Valid: true}
		}

		_, err = s.sq.
			Insert("trades").
			Columns("run_id", "trade_id", "symbol", "side", "quantity", "entry_price",
				"entry_time", "exit_price", "exit_time", "fees", "pnl", "pnl_percent", "status").
			Values(result.ID, trade.ID, trade.Symbol, string(trade.Side), trade.Quantity, trade.EntryPrice,
				trade.EntryTime, exitPrice, exitTime, trade.Fees, trade.PnL, trade.PnLPercent, string(trade.Status)).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeResultStore, "failed to insert trade", err)
		}
	}

	for _, snapshot := range result.Snapshots {
		_, err = s.sq.
			Insert("snapshots").
			Columns("run_id", "time", "equity", "cash", "positions_value", "drawdown", "drawdown_percent").
			Values(result.ID, snapshot.Time, snapshot.Equity, snapshot.Cash, snapshot.PositionsValue,
				snapshot.Drawdown, snapshot.DrawdownPercent).
			RunWith(tx).
			Exec()
		if err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeResultStore, "failed to insert snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeResultStore, "failed to commit result", err)
	}

	s.log.Info("saved backtest result",
		zap.String("id", result.ID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("snapshots", len(result.Snapshots)),
	)

	return nil
}

// ListRunIDs returns the ids of all stored runs, most recent first.
func (s *ResultStore) ListRunIDs() ([]string, error) {
	rows, err := s.sq.
		Select("id").
		From("runs").
		OrderBy("ran_at DESC").
		RunWith(s.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultStore, "failed to list runs", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.ErrCodeResultStore, "failed to scan run id", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Close releases the underlying database handle.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
