package strategies

import (
	"fmt"

	"github.com/rustyeddy/barsim/indicators"
	"github.com/rustyeddy/barsim/market"
)

// RSIThreshold emits a buy when RSI drops below BuyBelow and a sell when it
// rises above SellAbove. Only the crossing bar signals.
type RSIThreshold struct {
	cfg Config
}

func NewRSIThreshold(cfg Config) (*RSIThreshold, error) {
	if cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("rsi period must be positive, got %d", cfg.RSIPeriod)
	}
	if cfg.BuyBelow <= 0 || cfg.SellAbove >= 100 || cfg.BuyBelow >= cfg.SellAbove {
		return nil, fmt.Errorf("rsi thresholds must satisfy 0 < buy-below < sell-above < 100, got %g/%g",
			cfg.BuyBelow, cfg.SellAbove)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RSIThreshold{cfg: cfg}, nil
}

func (s *RSIThreshold) Name() string {
	return fmt.Sprintf("rsi-threshold(%d,%g,%g)", s.cfg.RSIPeriod, s.cfg.BuyBelow, s.cfg.SellAbove)
}

func (s *RSIThreshold) Generate(series *market.Series) ([]market.Signal, error) {
	frames, err := s.cfg.frames(series)
	if err != nil {
		return nil, err
	}

	rsi := indicators.NewRSI(s.cfg.RSIPeriod)
	lv := newLevels(s.cfg)

	var (
		out     []market.Signal
		prev    float64
		hasPrev bool
	)
	for _, f := range frames {
		b := f.bar
		rsi.Update(b)
		lv.update(b)
		if !rsi.Ready() {
			continue
		}
		cur := rsi.Value()
		if !hasPrev {
			prev, hasPrev = cur, true
			continue
		}

		oversold := prev >= s.cfg.BuyBelow && cur < s.cfg.BuyBelow
		overbought := prev <= s.cfg.SellAbove && cur > s.cfg.SellAbove
		prev = cur

		if !lv.ready() {
			continue
		}
		switch {
		case oversold:
			out = append(out, lv.signal(f, market.Buy, "RSI_oversold_buy"))
		case overbought:
			out = append(out, lv.signal(f, market.Sell, "RSI_overbought_sell"))
		}
	}
	return out, nil
}
