package sim

import (
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid simulation parameters")

// Params are the account and execution settings of one run.
type Params struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	FeeRate        float64 `json:"fee_rate" yaml:"fee_rate"`             // fraction of notional per fill
	SlippagePct    float64 `json:"slippage_pct" yaml:"slippage_pct"`     // fraction of price per fill
	SlippageTicks  float64 `json:"slippage_ticks" yaml:"slippage_ticks"` // added after the percentage
	TickSize       float64 `json:"tick_size" yaml:"tick_size"`
	Leverage       float64 `json:"leverage" yaml:"leverage"` // 0 means 1
}

// DefaultParams is a 100k unlevered account paying 7.5bp per fill.
func DefaultParams() Params {
	return Params{
		InitialCapital: 100_000,
		FeeRate:        0.00075,
		Leverage:       1,
	}
}

func (p Params) Validate() error {
	if !finite(p.InitialCapital) || p.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be > 0, got %v", ErrInvalidParams, p.InitialCapital)
	}
	if !finite(p.FeeRate) || p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("%w: fee rate must be in [0,1), got %v", ErrInvalidParams, p.FeeRate)
	}
	if !finite(p.SlippagePct) || p.SlippagePct < 0 || p.SlippagePct >= 1 {
		return fmt.Errorf("%w: slippage pct must be in [0,1), got %v", ErrInvalidParams, p.SlippagePct)
	}
	if !finite(p.SlippageTicks) || p.SlippageTicks < 0 {
		return fmt.Errorf("%w: slippage ticks must be >= 0, got %v", ErrInvalidParams, p.SlippageTicks)
	}
	if !finite(p.TickSize) || p.TickSize < 0 {
		return fmt.Errorf("%w: tick size must be >= 0, got %v", ErrInvalidParams, p.TickSize)
	}
	if !finite(p.Leverage) || p.Leverage < 0 {
		return fmt.Errorf("%w: leverage must be >= 0, got %v", ErrInvalidParams, p.Leverage)
	}
	return nil
}

func (p Params) leverage() float64 {
	if p.Leverage <= 0 {
		return 1
	}
	return p.Leverage
}
