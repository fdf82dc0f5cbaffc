package sim

import (
	"math"
	"time"

	"github.com/rustyeddy/barsim/market"
)

// dust is the smallest position magnitude the engine keeps open.
const dust = 1e-9

// Direction: +1 long, -1 short
type Direction int8

const (
	Long  Direction = +1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return "Flat"
	}
}

// Side is the order side that opens a position in this direction.
func (d Direction) Side() market.Side { return market.Side(d) }

// Position is the single net position of a run. Size is signed: positive
// long, negative short, zero flat. A flat position carries no exit levels.
type Position struct {
	Size       float64
	EntryPrice float64
	EntryTime  time.Time
	TakeProfit *float64
	StopLoss   *float64

	// EntryFee is the part of the opening commission not yet charged to a
	// closed trade.
	EntryFee float64
}

func (p Position) Flat() bool { return p.Size == 0 }

// Direction is zero when flat.
func (p Position) Direction() Direction {
	switch {
	case p.Size > 0:
		return Long
	case p.Size < 0:
		return Short
	default:
		return 0
	}
}

// Label is "Long", "Short" or "Flat".
func (p Position) Label() string { return p.Direction().String() }

func (p Position) Units() float64 { return math.Abs(p.Size) }

// UnrealizedPnLPct is the open return at mark in percent: mark/entry-1 for
// longs and entry/mark-1 for shorts.
func (p Position) UnrealizedPnLPct(mark float64) (float64, bool) {
	if p.Flat() || p.EntryPrice == 0 || mark == 0 || !finite(mark) {
		return 0, false
	}
	if p.Size > 0 {
		return (mark/p.EntryPrice - 1) * 100, true
	}
	return (p.EntryPrice/mark - 1) * 100, true
}

// Capital is the cash account of a run.
type Capital struct {
	Cash     float64
	Realized float64 // net P/L of closed trades since inception
}

func copyLevel(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
