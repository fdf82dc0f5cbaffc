package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/risk"
)

// OutputRow is the state of the run after bar Time was processed,
// including the exits and the signal executed on that bar. Equity on the
// first row is InitialCapital only when nothing executes on it; an entry
// there already carries its fee and slippage.
// Optional fields are nil when they do not apply to the bar.
type OutputRow struct {
	Time             time.Time
	MarkPrice        float64 // last finite close
	Equity           float64 // Cash + PositionSize*MarkPrice
	Cash             float64
	PositionSize     float64
	Side             string
	UnrealizedPnL    float64 // before fees
	UnrealizedPnLPct float64

	EntryPrice *float64
	TakeProfit *float64
	StopLoss   *float64

	// Set on bars where (part of) the position was closed.
	ExitPrice   *float64
	ExitReason  ExitReason
	RealizedPnL *float64

	Malformed bool
}

// Stats counts what happened to the signals and bars of a run.
type Stats struct {
	Bars          int
	MalformedBars int

	Signals   int // signals aligned to a bar
	Executed  int
	Ignored   int // same direction as the open position
	Discarded int // unsizeable, or on a malformed bar
	Preempted int // an exit fired on the same bar
	Rejected  int // not enough cash
	Clamped   int // reduced to what cash could pay for

	StopLossExits   int
	TakeProfitExits int
}

type Result struct {
	Rows     []OutputRow
	Trades   []Trade
	Position Position // open at the end of the run
	Capital  Capital
	Stats    Stats
}

// FinalEquity is the equity of the last row.
func (r Result) FinalEquity() float64 {
	if len(r.Rows) == 0 {
		return 0
	}
	return r.Rows[len(r.Rows)-1].Equity
}

// simulation is the mutable context of a single Run.
type simulation struct {
	p   Params
	lev float64

	pos    Position
	cap    Capital
	mark   float64
	marked bool

	rows   []OutputRow
	trades []Trade
	stats  Stats
}

// Run replays series bar by bar, executing signals at the close of the bar
// they are stamped with. Signals stamped between bars are never executed.
// Identical inputs give identical results.
func Run(series *market.Series, signals *market.Signals, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if series == nil || series.Len() == 0 {
		return Result{}, fmt.Errorf("run: %w", market.ErrEmptySeries)
	}

	s := &simulation{
		p:    p,
		lev:  p.leverage(),
		cap:  Capital{Cash: p.InitialCapital},
		rows: make([]OutputRow, 0, series.Len()),
	}
	for i := 0; i < series.Len(); i++ {
		b := series.At(i)
		sig, ok := signals.At(b.Time)
		s.step(b, sig, ok)
	}

	return Result{
		Rows:     s.rows,
		Trades:   s.trades,
		Position: s.pos,
		Capital:  s.cap,
		Stats:    s.stats,
	}, nil
}

func (s *simulation) step(b market.Bar, sig market.Signal, hasSignal bool) {
	s.stats.Bars++
	if hasSignal {
		s.stats.Signals++
	}
	if finite(b.Close) {
		s.mark, s.marked = b.Close, true
	}

	row := OutputRow{Time: b.Time}
	if !b.Valid() {
		row.Malformed = true
		s.stats.MalformedBars++
		if hasSignal {
			s.stats.Discarded++
		}
		s.seal(&row)
		return
	}

	exited := false
	if !s.pos.Flat() {
		if level, reason, hit := checkExit(s.pos, b); hit {
			s.exit(b.Time, level, reason, &row)
			exited = true
		}
	}

	if hasSignal {
		if exited {
			s.stats.Preempted++
		} else {
			s.execute(b, sig, &row)
		}
	}
	s.seal(&row)
}

// exit closes the position at a triggered level.
func (s *simulation) exit(t time.Time, level float64, reason ExitReason, row *OutputRow) {
	side := s.pos.Direction().Side().Opposite()
	fill := ApplySlippage(level, side, s.p.SlippagePct, s.p.SlippageTicks, s.p.TickSize)
	if !s.reduce(t, s.pos.Units(), fill, reason, row) {
		return
	}
	switch reason {
	case StopLoss:
		s.stats.StopLossExits++
	case TakeProfit:
		s.stats.TakeProfitExits++
	}
}

// execute acts on the bar's signal at the bar close.
func (s *simulation) execute(b market.Bar, sig market.Signal, row *OutputRow) {
	price := b.Close

	if s.pos.Flat() {
		s.open(b.Time, price, sig)
		return
	}
	if s.pos.Direction().Side() == sig.Side {
		s.stats.Ignored++
		return
	}

	n, ok := s.size(sig, price, false)
	if !ok {
		s.stats.Discarded++
		return
	}
	fill := ApplySlippage(price, sig.Side, s.p.SlippagePct, s.p.SlippageTicks, s.p.TickSize)
	if s.reduce(b.Time, n, fill, Signal, row) {
		s.stats.Executed++
	}
}

func (s *simulation) open(t time.Time, price float64, sig market.Signal) {
	n, ok := s.size(sig, price, true)
	if !ok {
		s.stats.Discarded++
		return
	}
	fill := ApplySlippage(price, sig.Side, s.p.SlippagePct, s.p.SlippageTicks, s.p.TickSize)
	if !finite(fill) || fill <= 0 {
		s.stats.Discarded++
		return
	}

	if sig.Side == market.Buy {
		cost := n*fill + ComputeFee(n*fill, s.p.FeeRate)
		if cost > s.cap.Cash {
			if sig.Size.Kind == market.SizeUnits {
				s.stats.Rejected++
				return
			}
			n = affordable(s.cap.Cash, fill, s.p.FeeRate)
			if n <= dust {
				s.stats.Rejected++
				return
			}
			s.stats.Clamped++
		}
	}

	notional := n * fill
	fee := ComputeFee(notional, s.p.FeeRate)
	if sig.Side == market.Buy {
		s.cap.Cash -= notional + fee
	} else {
		s.cap.Cash += notional - fee
	}

	s.pos = Position{
		Size:       float64(sig.Side) * n,
		EntryPrice: fill,
		EntryTime:  t,
		TakeProfit: copyLevel(sig.TakeProfit),
		StopLoss:   copyLevel(sig.StopLoss),
		EntryFee:   fee,
	}
	s.stats.Executed++
}

// reduce closes up to units of the open position at fill and books the
// trade. It reports false when nothing could be closed.
func (s *simulation) reduce(t time.Time, units, fill float64, reason ExitReason, row *OutputRow) bool {
	d := s.pos.Direction()
	held := s.pos.Units()

	// a long never sells below zero
	if d == Long && fill < 0 {
		fill = 0
	}

	q := math.Min(units, held)
	if held-q <= dust {
		q = held
	}

	// covering a short is a buy and must be paid for
	if d == Short {
		if afford := affordable(s.cap.Cash, fill, s.p.FeeRate); q > afford {
			q = afford
			if q <= dust {
				s.stats.Rejected++
				return false
			}
			s.stats.Clamped++
		}
	}

	notional := q * fill
	exitFee := ComputeFee(notional, s.p.FeeRate)
	entryFee := s.pos.EntryFee
	if q < held {
		entryFee = s.pos.EntryFee * q / held
	}
	gross := grossPnL(d, q, s.pos.EntryPrice, fill)

	if d == Long {
		s.cap.Cash += notional - exitFee
	} else {
		s.cap.Cash -= notional + exitFee
	}

	tr := Trade{
		EntryTime:  s.pos.EntryTime,
		ExitTime:   t,
		Direction:  d,
		Size:       q,
		EntryPrice: s.pos.EntryPrice,
		ExitPrice:  fill,
		GrossPnL:   gross,
		EntryFee:   entryFee,
		ExitFee:    exitFee,
		NetPnL:     gross - entryFee - exitFee,
		Reason:     reason,
	}
	s.trades = append(s.trades, tr)
	s.cap.Realized += tr.NetPnL

	if q == held {
		s.pos = Position{}
	} else {
		s.pos.Size -= float64(d) * q
		s.pos.EntryFee -= entryFee
	}

	px := fill
	row.ExitPrice = &px
	row.ExitReason = reason
	realized := tr.NetPnL
	if row.RealizedPnL != nil {
		realized += *row.RealizedPnL
	}
	row.RealizedPnL = &realized
	return true
}

// size resolves a signal's size hint against equity at price. Opening
// unit sizes are capped at equity*leverage/price.
func (s *simulation) size(sig market.Signal, price float64, opening bool) (float64, bool) {
	capital := s.cap.Cash + s.pos.Size*price

	var n float64
	switch sig.Size.Kind {
	case market.SizeRiskFraction:
		v, err := risk.SizeFromRisk(capital, sig.Size.Value, price, sig.StopLoss, s.lev)
		if err != nil {
			return 0, false
		}
		n = v
	default:
		n = sig.Size.Value
		if opening {
			n = math.Min(n, risk.MaxSize(capital, s.lev, price))
		}
	}
	if !finite(n) || n <= 0 {
		return 0, false
	}
	return n, true
}

func (s *simulation) seal(row *OutputRow) {
	row.Cash = s.cap.Cash
	row.PositionSize = s.pos.Size
	row.Side = s.pos.Label()
	row.Equity = s.cap.Cash
	if s.marked {
		row.MarkPrice = s.mark
		row.Equity += s.pos.Size * s.mark
	}

	if !s.pos.Flat() {
		entry := s.pos.EntryPrice
		row.EntryPrice = &entry
		row.TakeProfit = copyLevel(s.pos.TakeProfit)
		row.StopLoss = copyLevel(s.pos.StopLoss)
		if s.marked {
			row.UnrealizedPnL = UnrealizedPL(s.pos, s.mark)
		}
		if pct, ok := s.pos.UnrealizedPnLPct(s.mark); ok {
			row.UnrealizedPnLPct = pct
		}
	}
	s.rows = append(s.rows, *row)
}

// affordable is the largest size whose cost plus fee fits in cash.
func affordable(cash, fill, feeRate float64) float64 {
	if cash <= 0 || fill <= 0 {
		return 0
	}
	// leave room for rounding so cash stays non-negative
	return cash / (fill * (1 + feeRate)) * (1 - 1e-12)
}
