package journal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/barsim/sim"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(sampleTrade("01JABCDEFGHJKMNPQRSTVWXYZ0", 3))

	assert.True(t, strings.HasPrefix(result, "** Trade 3: Long TakeProfit (STVWXYZ0)"))
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":RUN_ID: 01JABCDEFGHJKMNPQRSTVWXYZ0")
	assert.Contains(t, result, ":SIZE: 1.5")
	assert.Contains(t, result, ":ENTRY_PRICE: 100.25")
	assert.Contains(t, result, ":ENTRY_TIME: 2024-01-02T03:04:00Z")
	assert.Contains(t, result, ":NET_PNL: 1.95")
	assert.Contains(t, result, ":RETURN_PCT: 1.30")
	assert.Contains(t, result, ":END:")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradesOrg([]TradeRecord{sampleTrade("R", 1), sampleTrade("R", 2)})
	assert.Equal(t, 2, strings.Count(out, "** Trade "))
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestBacktestRunOrg(t *testing.T) {
	t.Parallel()

	run := sampleRun("R1", entry)
	var buf bytes.Buffer
	require.NoError(t, run.RenderOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* BACKTEST: ema_cross btc_1m.csv")
	assert.Contains(t, out, ":PROFIT_FAC:  n/a")
	assert.Contains(t, out, ":WIN_RATE:    100.0000%")
	assert.Contains(t, out, "| Fee rate        | 0.1000% |")
	assert.Contains(t, out, "| Profit Factor | n/a |")
	assert.Contains(t, out, "| Take-profit exits   | 1 |")
	assert.Contains(t, out, "- second note")

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteBacktestOrg(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

type memJournal struct {
	trades []TradeRecord
	equity []EquitySnapshot
	closed bool
	err    error
}

func (m *memJournal) RecordTrade(t TradeRecord) error {
	m.trades = append(m.trades, t)
	return m.err
}

func (m *memJournal) RecordEquity(e EquitySnapshot) error {
	m.equity = append(m.equity, e)
	return m.err
}

func (m *memJournal) Close() error {
	m.closed = true
	return m.err
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a, b := &memJournal{}, &memJournal{}
	j := Multi(a, b)

	require.NoError(t, j.RecordTrade(sampleTrade("R", 1)))
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R"}))
	require.NoError(t, j.Close())

	for _, m := range []*memJournal{a, b} {
		assert.Len(t, m.trades, 1)
		assert.Len(t, m.equity, 1)
		assert.True(t, m.closed)
	}

	boom := errors.New("boom")
	bad, after := &memJournal{err: boom}, &memJournal{}
	j = Multi(bad, after)
	assert.ErrorIs(t, j.RecordTrade(sampleTrade("R", 1)), boom)
	assert.Empty(t, after.trades)
	assert.ErrorIs(t, j.Close(), boom)
	assert.True(t, after.closed)
}

func TestRecordsFromSimulation(t *testing.T) {
	t.Parallel()

	tr := sim.Trade{
		EntryTime: entry, ExitTime: exit, Direction: sim.Short, Size: 2,
		EntryPrice: 100, ExitPrice: 95, GrossPnL: 10, EntryFee: 0.2, ExitFee: 0.19, NetPnL: 9.61,
		Reason: sim.StopLoss,
	}
	rec := NewTradeRecord("R", 4, tr)
	assert.Equal(t, "Short", rec.Direction)
	assert.Equal(t, "StopLoss", rec.Reason)
	assert.Equal(t, 4, rec.Seq)
	assert.InDelta(t, 0.39, rec.Fees, 1e-12)
	assert.InDelta(t, 4.805, rec.ReturnPct, 1e-9)

	snap := NewEquitySnapshot("R", sim.OutputRow{Time: entry, Equity: 5, Cash: 5, Side: "Flat", Malformed: true})
	assert.Equal(t, "R", snap.RunID)
	assert.True(t, snap.Malformed)
	assert.Equal(t, 5.0, snap.Equity)
	assert.Nil(t, snap.EntryPrice)

	snap = NewEquitySnapshot("R", sim.OutputRow{
		Time: exit, Side: "Short", PositionSize: -1,
		UnrealizedPnL: 2, UnrealizedPnLPct: 2.04,
		EntryPrice: fptr(100), StopLoss: fptr(103),
		ExitPrice: fptr(98), ExitReason: sim.Signal, RealizedPnL: fptr(1.9),
	})
	assert.Equal(t, 2.0, snap.UnrealizedPnL)
	assert.Equal(t, 2.04, snap.UnrealizedPnLPct)
	assert.Equal(t, fptr(100), snap.EntryPrice)
	assert.Nil(t, snap.TakeProfit)
	assert.Equal(t, fptr(103), snap.StopLoss)
	assert.Equal(t, fptr(98), snap.ExitPrice)
	assert.Equal(t, "Signal", snap.ExitReason)
	assert.Equal(t, fptr(1.9), snap.RealizedPnL)
}

type batchJournal struct {
	memJournal
	batches int
}

func (b *batchJournal) RecordEquityBatch(rows []EquitySnapshot) error {
	b.batches++
	b.equity = append(b.equity, rows...)
	return nil
}

func TestMultiEquityBatch(t *testing.T) {
	t.Parallel()

	plain, batched := &memJournal{}, &batchJournal{}
	j := Multi(plain, batched)

	b, ok := j.(interface {
		RecordEquityBatch([]EquitySnapshot) error
	})
	require.True(t, ok)
	rows := []EquitySnapshot{{RunID: "R", Equity: 1}, {RunID: "R", Equity: 2}}
	require.NoError(t, b.RecordEquityBatch(rows))

	assert.Equal(t, rows, plain.equity)
	assert.Equal(t, rows, batched.equity)
	assert.Equal(t, 1, batched.batches)
}

func TestMultiHasRun(t *testing.T) {
	t.Parallel()

	db, _ := newTestSQLite(t)
	defer db.Close()
	require.NoError(t, db.RecordTrade(sampleTrade("R1", 1)))

	h, ok := Multi(&memJournal{}, db).(interface {
		HasRun(context.Context, string) (bool, error)
	})
	require.True(t, ok)

	ctx := context.Background()
	found, err := h.HasRun(ctx, "R1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = h.HasRun(ctx, "R2")
	require.NoError(t, err)
	assert.False(t, found)

	h = Multi(&memJournal{}).(interface {
		HasRun(context.Context, string) (bool, error)
	})
	found, err = h.HasRun(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWriteBacktestOrgWithTrades(t *testing.T) {
	t.Parallel()

	run := sampleRun("R1", entry)
	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteBacktestOrg(path, sampleTrade("R1", 1), sampleTrade("R1", 2)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "\n** Trades\n")
	assert.Equal(t, 2, strings.Count(out, "\n*** Trade "))
}
