package market

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var ErrInvalidSignal = errors.New("invalid signal")

// Side: +1 buy, -1 sell
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int8(s))
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side { return -s }

func ParseSide(v string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "BUY", "LONG", "B":
		return Buy, nil
	case "SELL", "SHORT", "S":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidSignal, v)
	}
}

type SizeKind uint8

const (
	// SizeUnits is an absolute quantity of the instrument.
	SizeUnits SizeKind = iota
	// SizeRiskFraction is a fraction (or multiple) of capital. With a stop it
	// is the money at risk; without one it is exposure. See risk.SizeFromRisk.
	SizeRiskFraction
)

func (k SizeKind) String() string {
	if k == SizeRiskFraction {
		return "risk_fraction"
	}
	return "units"
}

// SizeHint tells the simulator how big an order should be.
type SizeHint struct {
	Kind  SizeKind
	Value float64
}

func Units(v float64) SizeHint        { return SizeHint{Kind: SizeUnits, Value: v} }
func RiskFraction(v float64) SizeHint { return SizeHint{Kind: SizeRiskFraction, Value: v} }

// Signal is an intended trade at the close of the bar stamped Time.
type Signal struct {
	Time time.Time
	Side Side
	Size SizeHint

	// Optional exit levels, applied only when the signal opens a position.
	TakeProfit *float64
	StopLoss   *float64

	Note string
}

func (s Signal) validate() error {
	if s.Time.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidSignal)
	}
	if s.Side != Buy && s.Side != Sell {
		return fmt.Errorf("%w: %s has side %d", ErrInvalidSignal, s.Time.Format(time.RFC3339), s.Side)
	}
	if s.Size.Kind != SizeUnits && s.Size.Kind != SizeRiskFraction {
		return fmt.Errorf("%w: %s has size kind %d", ErrInvalidSignal, s.Time.Format(time.RFC3339), s.Size.Kind)
	}
	if s.TakeProfit != nil && !finite(*s.TakeProfit) {
		return fmt.Errorf("%w: %s take profit %v", ErrInvalidSignal, s.Time.Format(time.RFC3339), *s.TakeProfit)
	}
	if s.StopLoss != nil && !finite(*s.StopLoss) {
		return fmt.Errorf("%w: %s stop loss %v", ErrInvalidSignal, s.Time.Format(time.RFC3339), *s.StopLoss)
	}
	return nil
}

// Signals is a sparse, immutable mapping from bar timestamp to signal.
type Signals struct {
	byTime     map[int64]Signal
	duplicates int
}

// NewSignals validates and indexes sigs. When several signals share a
// timestamp the last one in sigs wins; Duplicates reports how many were
// overwritten.
func NewSignals(sigs []Signal) (*Signals, error) {
	ss := &Signals{byTime: make(map[int64]Signal, len(sigs))}
	for i, s := range sigs {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		key := s.Time.UnixNano()
		if _, ok := ss.byTime[key]; ok {
			ss.duplicates++
		}
		ss.byTime[key] = s
	}
	return ss, nil
}

// At returns the signal stamped t. A nil receiver holds no signals.
func (ss *Signals) At(t time.Time) (Signal, bool) {
	if ss == nil {
		return Signal{}, false
	}
	s, ok := ss.byTime[t.UnixNano()]
	return s, ok
}

func (ss *Signals) Len() int {
	if ss == nil {
		return 0
	}
	return len(ss.byTime)
}

func (ss *Signals) Duplicates() int {
	if ss == nil {
		return 0
	}
	return ss.duplicates
}

// List returns the signals in time order.
func (ss *Signals) List() []Signal {
	if ss == nil {
		return nil
	}
	out := make([]Signal, 0, len(ss.byTime))
	for _, s := range ss.byTime {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Unmatched returns the signals whose timestamp is not a bar in series.
// The simulator never executes them.
func (ss *Signals) Unmatched(series *Series) []Signal {
	var out []Signal
	for _, s := range ss.List() {
		if _, ok := series.Index(s.Time); !ok {
			out = append(out, s)
		}
	}
	return out
}
