package strategies

import (
	"fmt"

	"github.com/rustyeddy/barsim/indicators"
	"github.com/rustyeddy/barsim/market"
)

// EMACross emits a buy when the fast EMA crosses above the slow one and a
// sell when it crosses below. Malformed bars are skipped.
type EMACross struct {
	cfg Config
}

func NewEMACross(cfg Config) (*EMACross, error) {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		return nil, fmt.Errorf("ema periods must be positive, got %d/%d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return nil, fmt.Errorf("fast period %d must be below slow period %d", cfg.FastPeriod, cfg.SlowPeriod)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &EMACross{cfg: cfg}, nil
}

func (s *EMACross) Name() string {
	return fmt.Sprintf("ema-cross(%d,%d)", s.cfg.FastPeriod, s.cfg.SlowPeriod)
}

func (s *EMACross) Generate(series *market.Series) ([]market.Signal, error) {
	frames, err := s.cfg.frames(series)
	if err != nil {
		return nil, err
	}

	fast := indicators.NewEMA(s.cfg.FastPeriod)
	slow := indicators.NewEMA(s.cfg.SlowPeriod)
	lv := newLevels(s.cfg)

	var (
		out          []market.Signal
		lastDiff     float64
		haveLastDiff bool
	)
	for _, f := range frames {
		b := f.bar
		fast.Update(b)
		slow.Update(b)
		lv.update(b)

		// Wait until both EMAs are warmed up.
		if !fast.Ready() || !slow.Ready() {
			continue
		}
		diff := fast.Value() - slow.Value()

		// Need a previous diff to detect a cross.
		if !haveLastDiff {
			lastDiff, haveLastDiff = diff, true
			continue
		}

		crossUp := lastDiff <= 0 && diff > 0
		crossDown := lastDiff >= 0 && diff < 0
		lastDiff = diff

		if !lv.ready() {
			continue
		}
		switch {
		case crossUp:
			out = append(out, lv.signal(f, market.Buy, "EMA_cross_up_buy"))
		case crossDown:
			out = append(out, lv.signal(f, market.Sell, "EMA_cross_down_sell"))
		}
	}
	return out, nil
}
