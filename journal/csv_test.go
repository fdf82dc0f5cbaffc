package journal

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{tradeHeader}, readCSV(t, tradesPath))
	assert.Equal(t, [][]string{equityHeader}, readCSV(t, equityPath))
}

func TestCSVJournalRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(tradesPath, equityPath)
	require.NoError(t, err)

	require.NoError(t, j.RecordTrade(sampleTrade("R1", 1)))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID:        "R1",
		Time:         entry,
		MarkPrice:    100.123456789,
		Cash:         900,
		PositionSize: 1,
		Equity:       1000.123456789,
		Side:         "Long",

		UnrealizedPnL:    0.25,
		UnrealizedPnLPct: 0.125,
		EntryPrice:       fptr(100),
		StopLoss:         fptr(98),
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		RunID:       "R1",
		Time:        exit,
		MarkPrice:   104,
		Cash:        1004,
		Equity:      1004,
		Side:        "Flat",
		ExitPrice:   fptr(104),
		ExitReason:  "TakeProfit",
		RealizedPnL: fptr(3.9),
	}))
	require.NoError(t, j.Close())

	trades := readCSV(t, tradesPath)
	require.Len(t, trades, 2)
	assert.Equal(t, []string{
		"R1", "1", "Long", "1.5", "100.25", "101.75",
		"2024-01-02T03:04:00Z", "2024-01-02T04:05:00Z",
		"2.25", "0.3", "1.95", "1.3", "TakeProfit",
	}, trades[1])

	equity := readCSV(t, equityPath)
	require.Len(t, equity, 3)
	assert.Equal(t, []string{
		"R1", "2024-01-02T03:04:00Z", "100.12345679", "900", "1", "1000.12345679", "Long", "false",
		"0.25", "0.125", "100", "", "98", "", "", "",
	}, equity[1])
	assert.Equal(t, []string{
		"R1", "2024-01-02T04:05:00Z", "104", "1004", "0", "1004", "Flat", "false",
		"0", "0", "", "", "", "104", "TakeProfit", "3.9",
	}, equity[2])
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0.1", formatNumber(0.1))
	assert.Equal(t, "-12.5", formatNumber(-12.5))
	assert.Equal(t, "0.00001234", formatNumber(0.00001234))
	assert.Equal(t, "", formatNumber(math.NaN()))
	assert.Equal(t, "", formatNumber(math.Inf(-1)))
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "t.csv"), filepath.Join(t.TempDir(), "e.csv"))
	assert.Error(t, err)
}
