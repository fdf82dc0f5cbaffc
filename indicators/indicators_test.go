package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/barsim/market"
)

func createTestBars() []market.Bar {
	return []market.Bar{
		{Open: 100, High: 105, Low: 99, Close: 102},
		{Open: 102, High: 107, Low: 101, Close: 105},
		{Open: 105, High: 108, Low: 104, Close: 106},
		{Open: 106, High: 110, Low: 105, Close: 108},
		{Open: 108, High: 112, Low: 107, Close: 110},
		{Open: 110, High: 113, Low: 109, Close: 111},
		{Open: 111, High: 115, Low: 110, Close: 113},
		{Open: 113, High: 116, Low: 112, Close: 114},
		{Open: 114, High: 118, Low: 113, Close: 116},
		{Open: 116, High: 120, Low: 115, Close: 118},
	}
}

func closes(cs ...float64) []market.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, len(cs))
	for i, c := range cs {
		bars[i] = market.Bar{Time: base.Add(time.Duration(i) * time.Minute), Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func TestMA(t *testing.T) {
	bars := createTestBars()

	ma, err := MA(bars, 5)
	assert.NoError(t, err)
	// Last 5 closes: 111,113,114,116,118 => 572/5 = 114.4
	assert.InDelta(t, 114.4, ma, 0.001)

	_, err = MA(bars, 0)
	assert.Error(t, err)
	_, err = MA(bars[:3], 5)
	assert.Error(t, err)
}

func TestEMA(t *testing.T) {
	bars := createTestBars()

	ema, err := EMA(bars, 5)
	assert.NoError(t, err)
	assert.Greater(t, ema, 0.0)

	// constant closes stay constant
	ema, err = EMA(closes(7, 7, 7, 7), 2)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, ema, 1e-12)

	_, err = EMA(bars[:2], 3)
	assert.Error(t, err)
}

func TestATRFuncDetailed(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}
	atr, err := ATRFunc(bars, 3)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, atr, 1e-12)

	_, err = ATRFunc(bars[:3], 3)
	assert.Error(t, err)
}

func TestTrueRange(t *testing.T) {
	current := market.Bar{High: 110, Low: 100, Close: 105}
	previous := market.Bar{Close: 104}
	assert.InDelta(t, 10.0, trueRange(current, previous), 1e-12)

	// gap up: previous close below the low
	gap := market.Bar{High: 112, Low: 110, Close: 111}
	assert.InDelta(t, 12.0, trueRange(gap, previous), 1e-12)
}

func TestRSI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		period int
		closes []float64
		ready  bool
		want   float64
	}{
		{"warming up", 3, []float64{1, 2, 3}, false, 0},
		{"only gains", 3, []float64{1, 2, 3, 4}, true, 100},
		{"only losses", 3, []float64{4, 3, 2, 1}, true, 0},
		{"flat", 3, []float64{5, 5, 5, 5}, true, 50},
		// gains 2,0 losses 0,1 => avg 1 / 0.5 => rs 2
		{"mixed seed", 2, []float64{10, 12, 11}, true, 100 - 100/3.0},
		// wilder step: gain (1*1+0)/2=0.5 loss (0.5*1+1)/2=0.75
		{"smoothed", 2, []float64{10, 12, 11, 10}, true, 100 - 100/(1+0.5/0.75)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := NewRSI(tt.period)
			for _, b := range closes(tt.closes...) {
				r.Update(b)
			}
			assert.Equal(t, tt.ready, r.Ready())
			assert.InDelta(t, tt.want, r.Value(), 1e-9)
		})
	}
}

func TestRSIReset(t *testing.T) {
	t.Parallel()

	r := NewRSI(2)
	assert.Equal(t, "RSI(2)", r.Name())
	assert.Equal(t, 3, r.Warmup())
	for _, b := range closes(1, 2, 3) {
		r.Update(b)
	}
	require.True(t, r.Ready())

	r.Reset()
	assert.False(t, r.Ready())
	assert.Equal(t, "RSI(2)", r.Name())
	for _, b := range closes(3, 2, 1) {
		r.Update(b)
	}
	assert.InDelta(t, 0.0, r.Value(), 1e-12)
}
