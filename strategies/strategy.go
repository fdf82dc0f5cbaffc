// Package strategies holds reference signal generators. A generator reads a
// bar series once and emits the signal stream the simulator consumes; it
// never sees fills, cash or positions.
package strategies

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/barsim/indicators"
	"github.com/rustyeddy/barsim/market"
)

// Generator turns a bar series into signals stamped with bar times.
type Generator interface {
	Name() string
	Generate(series *market.Series) ([]market.Signal, error)
}

// Config carries every generator's knobs; each generator reads the ones it
// needs.
type Config struct {
	FastPeriod int `json:"fast-period" yaml:"fast-period" toml:"fast-period"`
	SlowPeriod int `json:"slow-period" yaml:"slow-period" toml:"slow-period"`

	RSIPeriod int     `json:"rsi-period" yaml:"rsi-period" toml:"rsi-period"`
	BuyBelow  float64 `json:"buy-below" yaml:"buy-below" toml:"buy-below"`
	SellAbove float64 `json:"sell-above" yaml:"sell-above" toml:"sell-above"`

	RiskPct       float64 `json:"risk-percent" yaml:"risk-percent" toml:"risk-percent"`
	TakeProfitPct float64 `json:"take-profit-pct" yaml:"take-profit-pct" toml:"take-profit-pct"`
	StopLossPct   float64 `json:"stop-loss-pct" yaml:"stop-loss-pct" toml:"stop-loss-pct"`

	// ATRStop > 0 replaces the percentage levels: the stop sits ATRStop
	// ATRs from the close and the target RR times further.
	ATRPeriod int     `json:"atr-period" yaml:"atr-period" toml:"atr-period"`
	ATRStop   float64 `json:"atr-stop" yaml:"atr-stop" toml:"atr-stop"`
	RR        float64 `json:"risk-reward" yaml:"risk-reward" toml:"risk-reward"`

	// Timeframe resamples the bars (e.g. "M15") before the indicators see
	// them. Empty uses the bars as given.
	Timeframe string `json:"timeframe,omitempty" yaml:"timeframe,omitempty" toml:"timeframe,omitempty"`
}

func (c *Config) JSON() ([]byte, error) {
	return json.Marshal(c)
}

// ConfigDefaults mirrors the classic setup: EMA 7/99, RSI(14) 15/80,
// 1% risk with a 4% target and a 2% stop.
func ConfigDefaults() Config {
	return Config{
		FastPeriod:    7,
		SlowPeriod:    99,
		RSIPeriod:     14,
		BuyBelow:      15,
		SellAbove:     80,
		RiskPct:       0.01,
		TakeProfitPct: 0.04,
		StopLossPct:   0.02,
		ATRPeriod:     14,
		RR:            2,
	}
}

// Validate checks the fields shared by all generators.
func (c Config) Validate() error {
	if c.RiskPct <= 0 || c.RiskPct > 1 {
		return fmt.Errorf("risk-percent must be in (0, 1], got %g", c.RiskPct)
	}
	if c.ATRStop < 0 {
		return fmt.Errorf("atr-stop must be >= 0, got %g", c.ATRStop)
	}
	if c.ATRStop > 0 && c.ATRPeriod <= 0 {
		return fmt.Errorf("atr-period must be positive with atr-stop, got %d", c.ATRPeriod)
	}
	if c.ATRStop == 0 && (c.StopLossPct <= 0 || c.StopLossPct >= 1) {
		return fmt.Errorf("stop-loss-pct must be in (0, 1), got %g", c.StopLossPct)
	}
	if c.TakeProfitPct < 0 || c.TakeProfitPct >= 1 {
		return fmt.Errorf("take-profit-pct must be in [0, 1), got %g", c.TakeProfitPct)
	}
	if c.Timeframe != "" {
		if _, err := market.ParseTimeframe(c.Timeframe); err != nil {
			return err
		}
	}
	return nil
}

// frame is one bar a generator sees, with the time of the source bar its
// signal is stamped with.
type frame struct {
	bar market.Bar
	at  time.Time
}

// frames yields the well-formed bars, resampled when Timeframe is set. A
// resampled bar is stamped with its last source bar, whose close it shares.
func (c Config) frames(series *market.Series) ([]frame, error) {
	if series == nil {
		return nil, nil
	}
	if c.Timeframe == "" {
		out := make([]frame, 0, series.Len())
		for _, b := range series.Bars() {
			if b.Valid() {
				out = append(out, frame{bar: b, at: b.Time})
			}
		}
		return out, nil
	}

	tf, err := market.ParseTimeframe(c.Timeframe)
	if err != nil {
		return nil, err
	}
	buckets, err := market.Resample(series, tf, 1)
	if err != nil {
		return nil, fmt.Errorf("resample to %s: %w", c.Timeframe, err)
	}
	out := make([]frame, len(buckets))
	for i, bk := range buckets {
		out[i] = frame{bar: bk.Bar, at: series.At(bk.Last).Time}
	}
	return out, nil
}

// note prefixes the timeframe, as in "M15_RSI_oversold_buy".
func (c Config) note(s string) string {
	if c.Timeframe == "" {
		return s
	}
	return strings.ToUpper(c.Timeframe) + "_" + s
}

type factory func(Config) (Generator, error)

var registry = map[string]factory{
	"noop": func(Config) (Generator, error) { return Noop{}, nil },
	"ema-cross": func(c Config) (Generator, error) {
		return NewEMACross(c)
	},
	"rsi-threshold": func(c Config) (Generator, error) {
		return NewRSIThreshold(c)
	},
}

var aliases = map[string]string{
	"none":     "noop",
	"emacross": "ema-cross",
	"ema":      "ema-cross",
	"rsi":      "rsi-threshold",
}

// Names lists the registered generators.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds a registered generator.
func ByName(name string, cfg Config) (Generator, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[key]; ok {
		key = a
	}
	f, ok := registry[key]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(cfg)
}

// levels turns a close into take-profit and stop-loss prices for side.
type levels struct {
	cfg Config
	atr *indicators.ATR
}

func newLevels(cfg Config) *levels {
	l := &levels{cfg: cfg}
	if cfg.ATRStop > 0 {
		l.atr = indicators.NewATR(cfg.ATRPeriod)
	}
	return l
}

func (l *levels) update(b market.Bar) {
	if l.atr != nil {
		l.atr.Update(b)
	}
}

// ready is false while the ATR is warming up.
func (l *levels) ready() bool {
	return l.atr == nil || l.atr.Ready()
}

func (l *levels) at(side market.Side, price float64) (tp, sl *float64) {
	s := float64(side)
	if l.atr != nil {
		dist := l.cfg.ATRStop * l.atr.Value()
		stop := price - s*dist
		sl = &stop
		if l.cfg.RR > 0 {
			target := price + s*dist*l.cfg.RR
			tp = &target
		}
		return tp, sl
	}

	stop := price * (1 - s*l.cfg.StopLossPct)
	sl = &stop
	if l.cfg.TakeProfitPct > 0 {
		target := price * (1 + s*l.cfg.TakeProfitPct)
		tp = &target
	}
	return tp, sl
}

func (l *levels) signal(f frame, side market.Side, note string) market.Signal {
	tp, sl := l.at(side, f.bar.Close)
	return market.Signal{
		Time:       f.at,
		Side:       side,
		Size:       market.RiskFraction(l.cfg.RiskPct),
		TakeProfit: tp,
		StopLoss:   sl,
		Note:       l.cfg.note(note),
	}
}
