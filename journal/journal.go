// journal/journal.go
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/barsim/sim"
)

// TradeRecord is one closed trade of a run.
type TradeRecord struct {
	RunID      string
	Seq        int // position in the run's ledger, from 1
	Direction  string
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	GrossPnL   float64
	Fees       float64
	NetPnL     float64
	ReturnPct  float64 // net P/L over entry notional, percent
	Reason     string
}

// EquitySnapshot is one output row of a run. The pointer fields are nil
// when the row has no open position or no exit.
type EquitySnapshot struct {
	RunID        string
	Time         time.Time
	MarkPrice    float64
	Cash         float64
	PositionSize float64
	Equity       float64
	Side         string
	Malformed    bool

	UnrealizedPnL    float64
	UnrealizedPnLPct float64
	EntryPrice       *float64
	TakeProfit       *float64
	StopLoss         *float64

	ExitPrice   *float64
	ExitReason  string
	RealizedPnL *float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

func NewTradeRecord(runID string, seq int, t sim.Trade) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		Seq:        seq,
		Direction:  t.Direction.String(),
		Size:       t.Size,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		GrossPnL:   t.GrossPnL,
		Fees:       t.Fees(),
		NetPnL:     t.NetPnL,
		ReturnPct:  t.ReturnPct(),
		Reason:     string(t.Reason),
	}
}

func NewEquitySnapshot(runID string, r sim.OutputRow) EquitySnapshot {
	return EquitySnapshot{
		RunID:        runID,
		Time:         r.Time,
		MarkPrice:    r.MarkPrice,
		Cash:         r.Cash,
		PositionSize: r.PositionSize,
		Equity:       r.Equity,
		Side:         r.Side,
		Malformed:    r.Malformed,

		UnrealizedPnL:    r.UnrealizedPnL,
		UnrealizedPnLPct: r.UnrealizedPnLPct,
		EntryPrice:       r.EntryPrice,
		TakeProfit:       r.TakeProfit,
		StopLoss:         r.StopLoss,

		ExitPrice:   r.ExitPrice,
		ExitReason:  string(r.ExitReason),
		RealizedPnL: r.RealizedPnL,
	}
}

// Multi writes every record to each journal in order.
func Multi(js ...Journal) Journal { return multi(js) }

type multi []Journal

// HasRun asks every member that can answer.
func (m multi) HasRun(ctx context.Context, runID string) (bool, error) {
	for _, j := range m {
		h, ok := j.(interface {
			HasRun(context.Context, string) (bool, error)
		})
		if !ok {
			continue
		}
		found, err := h.HasRun(ctx, runID)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

func (m multi) RecordTrade(t TradeRecord) error {
	for _, j := range m {
		if err := j.RecordTrade(t); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) RecordEquity(e EquitySnapshot) error {
	for _, j := range m {
		if err := j.RecordEquity(e); err != nil {
			return err
		}
	}
	return nil
}

// RecordEquityBatch hands rows to members that batch and writes them one by
// one to the rest.
func (m multi) RecordEquityBatch(rows []EquitySnapshot) error {
	for _, j := range m {
		if b, ok := j.(interface {
			RecordEquityBatch([]EquitySnapshot) error
		}); ok {
			if err := b.RecordEquityBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, e := range rows {
			if err := j.RecordEquity(e); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m multi) Close() error {
	var errs []error
	for _, j := range m {
		errs = append(errs, j.Close())
	}
	return errors.Join(errs...)
}
