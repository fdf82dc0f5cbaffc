package sim

import "time"

// ExitReason records what closed (part of) a position.
type ExitReason string

const (
	StopLoss   ExitReason = "StopLoss"
	TakeProfit ExitReason = "TakeProfit"
	Signal     ExitReason = "Signal"
)

// Trade is one closed round trip, or the closed part of a position when an
// opposite signal only reduces it.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Direction  Direction
	Size       float64 // units closed, always positive
	EntryPrice float64
	ExitPrice  float64

	GrossPnL float64
	EntryFee float64 // share of the opening commission carried by this trade
	ExitFee  float64
	NetPnL   float64 // GrossPnL - EntryFee - ExitFee

	Reason ExitReason
}

func (t Trade) Fees() float64 { return t.EntryFee + t.ExitFee }

func (t Trade) Win() bool { return t.NetPnL > 0 }

// ReturnPct is net P/L relative to the entry notional, in percent.
func (t Trade) ReturnPct() float64 {
	notional := t.Size * t.EntryPrice
	if notional == 0 {
		return 0
	}
	return t.NetPnL / notional * 100
}
