package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func codes(d Decision) []string {
	var out []string
	for _, v := range d.Violations {
		out = append(out, v.Code)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	p := DefaultPolicy()

	tests := []struct {
		name   string
		policy Policy
		intent TradeIntent
		codes  []string
		rr     float64
		pct    float64
	}{
		{
			name:   "clean long",
			policy: p,
			intent: TradeIntent{Time: now, Direction: 1, RiskFraction: 0.01, Entry: 100, Stop: fptr(98), TakeProfit: fptr(104), Equity: 1000},
			rr:     2,
			pct:    0.01,
		},
		{
			name:   "clean short in units",
			policy: p,
			intent: TradeIntent{Time: now, Direction: -1, Units: 5, Entry: 100, Stop: fptr(102), TakeProfit: fptr(94), Equity: 1000},
			rr:     3,
			pct:    0.01,
		},
		{
			name:   "risk too high",
			policy: p,
			intent: TradeIntent{Direction: 1, Units: 20, Entry: 100, Stop: fptr(98), Equity: 1000},
			codes:  []string{"RISK_TOO_HIGH"},
			pct:    0.04,
		},
		{
			name:   "rr too low",
			policy: p,
			intent: TradeIntent{Direction: 1, RiskFraction: 0.01, Entry: 100, Stop: fptr(98), TakeProfit: fptr(101), Equity: 1000},
			codes:  []string{"RR_TOO_LOW"},
			rr:     0.5,
			pct:    0.01,
		},
		{
			name:   "levels on the wrong side",
			policy: p,
			intent: TradeIntent{Direction: -1, Units: 1, Entry: 100, Stop: fptr(99), TakeProfit: fptr(101), Equity: 1000},
			codes:  []string{"STOP_WRONG_SIDE", "TP_WRONG_SIDE", "RR_TOO_LOW"},
			rr:     1,
			pct:    0.001,
		},
		{
			name:   "stop required",
			policy: Policy{RequireStop: true},
			intent: TradeIntent{Direction: 1, Units: 1, Entry: 100, Equity: 1000},
			codes:  []string{"NO_STOP"},
		},
		{
			name:   "no stop no review",
			policy: p,
			intent: TradeIntent{Direction: 1, RiskFraction: 0.5, Entry: 100, Equity: 1000},
		},
		{
			name:   "bad entry",
			policy: p,
			intent: TradeIntent{Direction: 1, Units: 1, Entry: 0, Stop: fptr(-1)},
			codes:  []string{"NO_ENTRY"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := Evaluate(tt.policy, tt.intent)
			assert.Equal(t, tt.codes, codes(d))
			assert.Equal(t, len(tt.codes) == 0, d.Allowed)
			assert.InDelta(t, tt.rr, d.PlannedRR, 1e-12)
			assert.InDelta(t, tt.pct, d.PlannedRiskPct, 1e-12)
		})
	}
}

func TestViolationString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "NO_STOP: stop loss is not set", Violation{Code: "NO_STOP", Msg: "stop loss is not set"}.String())
}
