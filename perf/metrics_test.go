package perf

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/barsim/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// dailyRows builds one row per equity value, one day apart.
func dailyRows(equity ...float64) []sim.OutputRow {
	rows := make([]sim.OutputRow, len(equity))
	for i, e := range equity {
		rows[i] = sim.OutputRow{Time: day0.AddDate(0, 0, i), Equity: e, Cash: e, Side: "Flat"}
	}
	return rows
}

func nets(pnl ...float64) []sim.Trade {
	out := make([]sim.Trade, len(pnl))
	for i, p := range pnl {
		out[i] = sim.Trade{Size: 1, EntryPrice: 100, GrossPnL: p, NetPnL: p}
	}
	return out
}

func TestEvaluate_Empty(t *testing.T) {
	t.Parallel()

	m := Evaluate(nil, nil, Options{})
	assert.Equal(t, 0, m.Bars)
	assert.False(t, m.TotalReturn.Defined)
	assert.False(t, m.CAGR.Defined)
	assert.False(t, m.MaxDrawdown.Defined)
	assert.Equal(t, 0.0, m.WinRate)
	assert.False(t, m.ProfitFactor.Defined)
}

func TestEvaluate_FlatCurve(t *testing.T) {
	t.Parallel()

	m := Evaluate(dailyRows(1000, 1000, 1000), nil, Options{})

	assert.Equal(t, Def(0), m.TotalReturn)
	assert.Equal(t, Def(0), m.MaxDrawdown)
	assert.Equal(t, Def(0), m.CAGR)
	assert.Equal(t, Def(0), m.Volatility)
	assert.False(t, m.Sharpe.Defined, "zero variance has no sharpe")
	assert.False(t, m.Sortino.Defined)
	assert.InDelta(t, 365.0, m.BarsPerYear.V, 1e-9)
	assert.Equal(t, 0, m.Trades)
	assert.Equal(t, 0.0, m.WinRate)
	assert.False(t, m.ProfitFactor.Defined)
}

func TestEvaluate_Curve(t *testing.T) {
	t.Parallel()

	m := Evaluate(dailyRows(100, 110, 99, 121), nil, Options{})

	assert.InDelta(t, 21.0, m.NetProfit, 1e-9)
	assert.InDelta(t, 0.21, m.TotalReturn.V, 1e-12)
	assert.InDelta(t, -0.1, m.MaxDrawdown.V, 1e-12)
	assert.InEpsilon(t, math.Pow(1.21, 365.0/3)-1, m.CAGR.V, 1e-9)

	returns := []float64{0.1, -0.1, 121.0/99 - 1}
	mean := (returns[0] + returns[1] + returns[2]) / 3
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / 2)

	require.True(t, m.Sharpe.Defined)
	assert.InDelta(t, mean/sd*math.Sqrt(365), m.Sharpe.V, 1e-9)
	assert.InDelta(t, sd*math.Sqrt(365), m.Volatility.V, 1e-9)
	assert.False(t, m.Sortino.Defined, "one losing bar has no downside deviation")
}

func TestEvaluate_Sortino(t *testing.T) {
	t.Parallel()

	m := Evaluate(dailyRows(100, 90, 99, 94.05, 110), nil, Options{})
	require.True(t, m.Sortino.Defined)
	assert.Greater(t, m.Sortino.V, 0.0)
}

func TestEvaluate_AnnualDays(t *testing.T) {
	t.Parallel()

	m := Evaluate(dailyRows(100, 101, 102), nil, Options{AnnualDays: 252})
	assert.InDelta(t, 252.0, m.BarsPerYear.V, 1e-9)
}

func TestEvaluate_Exposure(t *testing.T) {
	t.Parallel()

	rows := dailyRows(100, 100, 100, 100)
	rows[1].PositionSize = 2
	rows[2].PositionSize = -1
	m := Evaluate(rows, nil, Options{})
	assert.InDelta(t, 0.5, m.Exposure, 1e-12)
}

func TestEvaluate_Trades(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		trades    []sim.Trade
		wins      int
		losses    int
		winRate   float64
		pf        Value
		avgWin    Value
		avgLoss   Value
		avgTrade  Value
		bestTrade Value
	}{
		{
			name:      "mixed",
			trades:    nets(10, -5, 20, 0),
			wins:      2,
			losses:    1,
			winRate:   0.5,
			pf:        Def(6),
			avgWin:    Def(15),
			avgLoss:   Def(-5),
			avgTrade:  Def(6.25),
			bestTrade: Def(20),
		},
		{
			name:      "winners_only",
			trades:    nets(3, 1),
			wins:      2,
			winRate:   1,
			avgWin:    Def(2),
			avgTrade:  Def(2),
			bestTrade: Def(3),
		},
		{
			name:      "losers_only",
			trades:    nets(-4),
			losses:    1,
			pf:        Def(0),
			avgLoss:   Def(-4),
			avgTrade:  Def(-4),
			bestTrade: Def(-4),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := Evaluate(dailyRows(100, 100), tt.trades, Options{})
			assert.Equal(t, len(tt.trades), m.Trades)
			assert.Equal(t, tt.wins, m.Wins)
			assert.Equal(t, tt.losses, m.Losses)
			assert.InDelta(t, tt.winRate, m.WinRate, 1e-12)
			assert.Equal(t, tt.pf, m.ProfitFactor)
			assert.Equal(t, tt.avgWin, m.AvgWin)
			assert.Equal(t, tt.avgLoss, m.AvgLoss)
			assert.Equal(t, tt.avgTrade, m.AvgTrade)
			assert.Equal(t, tt.bestTrade, m.BestTrade)
		})
	}
}

func TestValue_JSONAndString(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		A Value `json:"a"`
		B Value `json:"b"`
	}{Def(1.5), Undefined})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.5,"b":null}`, string(b))

	var v Value
	require.NoError(t, json.Unmarshal([]byte("null"), &v))
	assert.False(t, v.Defined)
	require.NoError(t, json.Unmarshal([]byte("2.25"), &v))
	assert.Equal(t, Def(2.25), v)

	assert.Equal(t, "n/a", Undefined.String())
	assert.Equal(t, "n/a", Undefined.Pct())
	assert.Equal(t, "1.5000", Def(1.5).String())
	assert.Equal(t, "12.50%", Def(0.125).Pct())
}

func TestMetrics_Named(t *testing.T) {
	t.Parallel()

	m := Evaluate(dailyRows(100, 105), nets(5), Options{})
	named := m.Named()
	require.NotEmpty(t, named)
	assert.Equal(t, "Start Equity", named[0].Name)
	assert.Equal(t, "100.00", named[0].Value)

	byName := map[string]string{}
	for _, n := range named {
		byName[n.Name] = n.Value
	}
	assert.Equal(t, "n/a", byName["Profit Factor"])
	assert.Equal(t, "100.00%", byName["Win Rate"])
	assert.Equal(t, "1", byName["Trades"])
}

func TestEvaluate_FromSimulation(t *testing.T) {
	t.Parallel()

	res := sim.Result{
		Rows: dailyRows(1000, 1010, 1004, 1020),
		Trades: []sim.Trade{
			{Size: 1, EntryPrice: 100, GrossPnL: 11, EntryFee: 0.5, ExitFee: 0.5, NetPnL: 10},
			{Size: 1, EntryPrice: 100, GrossPnL: -5, EntryFee: 0.5, ExitFee: 0.5, NetPnL: -6},
			{Size: 1, EntryPrice: 100, GrossPnL: 17, EntryFee: 0.5, ExitFee: 0.5, NetPnL: 16},
		},
	}
	m := Evaluate(res.Rows, res.Trades, Options{})

	assert.InDelta(t, 26.0/6.0, m.ProfitFactor.V, 1e-12)
	assert.InDelta(t, 3.0, m.Fees, 1e-12)
	assert.InDelta(t, 20.0, m.NetProfit, 1e-12)
}
