package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/barsim/perf"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

const insertTrade = `
	INSERT INTO trades
	(run_id, seq, direction, size, entry_price, exit_price, entry_time, exit_time, gross_pnl, fees, net_pnl, return_pct, reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertEquity = `
	INSERT INTO equity
	(run_id, time, mark_price, cash, position_size, equity, side, malformed,
	 unrealized_pnl, unrealized_pnl_pct, entry_price, take_profit, stop_loss, exit_price, exit_reason, realized_pnl)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(insertTrade,
		t.RunID, t.Seq, t.Direction, t.Size, t.EntryPrice, t.ExitPrice,
		t.EntryTime.UTC(), t.ExitTime.UTC(), t.GrossPnL, t.Fees, t.NetPnL, t.ReturnPct, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(insertEquity, equityArgs(e)...)
	return err
}

// RecordEquityBatch writes rows in a single transaction.
func (j *SQLite) RecordEquityBatch(rows []EquitySnapshot) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertEquity)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, e := range rows {
		if _, err := stmt.Exec(equityArgs(e)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("equity %s: %w", e.Time, err)
		}
	}
	return tx.Commit()
}

func equityArgs(e EquitySnapshot) []any {
	return []any{
		e.RunID, e.Time.UTC(), e.MarkPrice, e.Cash, e.PositionSize, e.Equity, e.Side, e.Malformed,
		e.UnrealizedPnL, e.UnrealizedPnLPct,
		nullFloat(e.EntryPrice), nullFloat(e.TakeProfit), nullFloat(e.StopLoss),
		nullFloat(e.ExitPrice), e.ExitReason, nullFloat(e.RealizedPnL),
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// RecordBacktest stores the run summary, replacing an earlier row with the
// same run id.
func (j *SQLite) RecordBacktest(ctx context.Context, btr BacktestRun) error {
	params, err := json.Marshal(btr.Params)
	if err != nil {
		return err
	}
	metrics, err := json.Marshal(btr.Metrics)
	if err != nil {
		return err
	}
	stats, err := json.Marshal(btr.Stats)
	if err != nil {
		return err
	}

	m := btr.Metrics
	_, err = j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, dataset, signals, strategy, params, start_time, end_time, bars,
		 trades, wins, losses, start_equity, final_equity, net_profit,
		 total_return, max_drawdown, sharpe, profit_factor, metrics, stats, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		btr.RunID, btr.Created.UTC(), btr.Dataset, btr.Signals, btr.Strategy, string(params),
		btr.Start.UTC(), btr.End.UTC(), btr.Bars,
		m.Trades, m.Wins, m.Losses, m.StartEquity, m.FinalEquity, m.NetProfit,
		nullable(m.TotalReturn), nullable(m.MaxDrawdown), nullable(m.Sharpe), nullable(m.ProfitFactor),
		string(metrics), string(stats), strings.Join(btr.Notes, "\n"),
	)
	return err
}

func nullable(v perf.Value) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.V, Valid: v.Defined}
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
