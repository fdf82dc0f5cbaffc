package journal

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	tradeHeader  = []string{"run_id", "seq", "direction", "size", "entry_price", "exit_price", "entry_time", "exit_time", "gross_pnl", "fees", "net_pnl", "return_pct", "reason"}
	equityHeader = []string{
		"run_id", "time", "mark_price", "cash", "position_size", "equity", "side", "malformed",
		"unrealized_pnl", "unrealized_pnl_pct", "entry_price", "take_profit", "stop_loss",
		"exit_price", "exit_reason", "realized_pnl",
	}
)

// CSVJournal writes trades and equity rows to two CSV files.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(tf), csv.NewWriter(ef), tf, ef}
	if err := j.write(j.trades, tradeHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.equity, equityHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.RunID,
		strconv.Itoa(t.Seq),
		t.Direction,
		formatNumber(t.Size),
		formatNumber(t.EntryPrice),
		formatNumber(t.ExitPrice),
		t.EntryTime.UTC().Format(time.RFC3339),
		t.ExitTime.UTC().Format(time.RFC3339),
		formatNumber(t.GrossPnL),
		formatNumber(t.Fees),
		formatNumber(t.NetPnL),
		formatNumber(t.ReturnPct),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		e.Time.UTC().Format(time.RFC3339),
		formatNumber(e.MarkPrice),
		formatNumber(e.Cash),
		formatNumber(e.PositionSize),
		formatNumber(e.Equity),
		e.Side,
		strconv.FormatBool(e.Malformed),
		formatNumber(e.UnrealizedPnL),
		formatNumber(e.UnrealizedPnLPct),
		formatOptional(e.EntryPrice),
		formatOptional(e.TakeProfit),
		formatOptional(e.StopLoss),
		formatOptional(e.ExitPrice),
		e.ExitReason,
		formatOptional(e.RealizedPnL),
	})
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return fmt.Errorf("csv journal: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

// formatNumber renders x rounded to 8 decimals without trailing zeros.
// Non-finite values are left empty.
func formatNumber(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	return decimal.NewFromFloat(x).Round(8).String()
}

// formatOptional leaves a nil value empty.
func formatOptional(x *float64) string {
	if x == nil {
		return ""
	}
	return formatNumber(*x)
}
