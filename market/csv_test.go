package market

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBarsCSV(t *testing.T) {
	t.Parallel()

	in := `Open_Time,Open,High,Low,Close,Volume
2025-10-01T00:00:00Z,100,101,99,100.5,12
2025-10-01 00:01:00,100.5,102,100,101,3

1759277040000,101,,100,101.5,0
`
	bars, err := ReadBarsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 100.5, bars[0].Close)
	assert.Equal(t, 12.0, bars[0].Volume)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 1, 0, 0, time.UTC), bars[1].Time)
	assert.Equal(t, time.UnixMilli(1759277040000).UTC(), bars[2].Time)
	assert.True(t, math.IsNaN(bars[2].High))
	assert.False(t, bars[2].Valid())
}

func TestReadBarsCSVErrors(t *testing.T) {
	t.Parallel()

	_, err := ReadBarsCSV(strings.NewReader("time,open,high,low\n"))
	assert.ErrorContains(t, err, `missing "close"`)

	_, err = ReadBarsCSV(strings.NewReader("time,open,high,low,close\nyesterday,1,1,1,1\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = ReadBarsCSV(strings.NewReader("time,open,high,low,close\n2025-10-01,x,1,1,1\n"))
	assert.ErrorContains(t, err, "bad open")

	_, err = ReadBarsCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestReadSignalsCSV(t *testing.T) {
	t.Parallel()

	in := `time,signal_side,size,risk_pct,tp_price,sl_price,note
2025-10-01T00:01:00Z,BUY,2,,105,98,explicit
2025-10-01T00:02:00Z,,,,,,
2025-10-01T00:03:00Z,SELL,3,0.01,95,102,risk wins
2025-10-01T00:04:00Z,sell,,,nan,,
`
	sigs, err := ReadSignalsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, sigs, 3)

	assert.Equal(t, Buy, sigs[0].Side)
	assert.Equal(t, Units(2), sigs[0].Size)
	require.NotNil(t, sigs[0].TakeProfit)
	assert.Equal(t, 105.0, *sigs[0].TakeProfit)
	assert.Equal(t, 98.0, *sigs[0].StopLoss)
	assert.Equal(t, "explicit", sigs[0].Note)

	assert.Equal(t, RiskFraction(0.01), sigs[1].Size)

	assert.Equal(t, Sell, sigs[2].Side)
	assert.Equal(t, Units(1), sigs[2].Size)
	assert.Nil(t, sigs[2].TakeProfit)
	assert.Nil(t, sigs[2].StopLoss)
}

func TestLoadSeriesAndSignals(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	barsPath := filepath.Join(dir, "bars.csv")
	sigPath := filepath.Join(dir, "signals.csv")

	require.NoError(t, os.WriteFile(barsPath, []byte(
		"time,open,high,low,close,volume\n"+
			"2025-10-01T00:00:00Z,1,1,1,1,1\n"+
			"2025-10-01T00:01:00Z,1,1,1,1,1\n"), 0o644))
	require.NoError(t, os.WriteFile(sigPath, []byte(
		"time,side\n2025-10-01T00:01:00Z,BUY\n"), 0o644))

	s, err := LoadSeries(barsPath)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	ss, err := LoadSignals(sigPath)
	require.NoError(t, err)
	assert.Equal(t, 1, ss.Len())
	assert.Empty(t, ss.Unmatched(s))

	require.NoError(t, os.WriteFile(barsPath, []byte(
		"time,open,high,low,close\n"+
			"2025-10-01T00:01:00Z,1,1,1,1\n"+
			"2025-10-01T00:00:00Z,1,1,1,1\n"), 0o644))
	_, err = LoadSeries(barsPath)
	assert.ErrorIs(t, err, ErrNonMonotonic)

	_, err = LoadSeries(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestWriteSignalsCSV(t *testing.T) {
	t.Parallel()

	tp, sl := 104.5, 98.25
	base := time.Date(2025, 10, 1, 0, 1, 0, 0, time.UTC)
	in := []Signal{
		{Time: base, Side: Buy, Size: RiskFraction(0.01), TakeProfit: &tp, StopLoss: &sl, Note: "RSI_oversold_buy"},
		{Time: base.Add(time.Minute), Side: Sell, Size: Units(2.5)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSignalsCSV(&buf, in))
	assert.Equal(t, "time,side,size,risk_fraction,take_profit,stop_loss,note\n"+
		"2025-10-01T00:01:00Z,BUY,,0.01,104.5,98.25,RSI_oversold_buy\n"+
		"2025-10-01T00:02:00Z,SELL,2.5,,,,\n", buf.String())

	out, err := ReadSignalsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
